package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CollectionTypeTextOnly     = "Text only"
	CollectionTypeTextAndVideo = "Text and Video"
	CollectionTypeVideoOnly    = "Video only"

	// MaxSpaceQuestions caps the prompts shown on the collection form.
	MaxSpaceQuestions = 5

	spaceNameMaxLength          = 200
	spaceHeaderTitleMaxLength   = 300
	spaceCustomMessageMaxLength = 2000
	spaceQuestionMaxLength      = 500
)

var (
	ErrInvalidSpaceOwner          = errors.New("invalid_space_owner")
	ErrInvalidSpaceName           = errors.New("invalid_space_name")
	ErrInvalidSpaceSlug           = errors.New("invalid_space_slug")
	ErrInvalidSpaceHeaderTitle    = errors.New("invalid_space_header_title")
	ErrInvalidSpaceCustomMessage  = errors.New("invalid_space_custom_message")
	ErrInvalidSpaceQuestions      = errors.New("invalid_space_questions")
	ErrInvalidSpaceCollectionType = errors.New("invalid_space_collection_type")
	ErrEmptySpaceUpdate           = errors.New("empty_space_update")
)

// Space is a collection point for testimonials owned by a single user.
type Space struct {
	ID             string    `gorm:"primaryKey;size:36"`
	UserID         string    `gorm:"not null;size:200;index"`
	Name           string    `gorm:"not null;size:200"`
	Slug           string    `gorm:"not null;size:220;uniqueIndex"`
	HeaderTitle    string    `gorm:"size:300"`
	CustomMessage  string    `gorm:"size:2000"`
	Questions      []string  `gorm:"serializer:json;type:text"`
	CollectionType string    `gorm:"not null;size:32"`
	StarRatings    bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// PublicSpace is the subset of a Space the collection form and embeds expose.
type PublicSpace struct {
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	HeaderTitle    string   `json:"headerTitle"`
	CustomMessage  string   `json:"customMessage"`
	Questions      []string `json:"questions"`
	StarRatings    bool     `json:"starRatings"`
	CollectionType string   `json:"collectionType"`
}

// SpaceInput holds the raw values used to construct a Space.
type SpaceInput struct {
	OwnerID        string
	Name           string
	HeaderTitle    string
	CustomMessage  string
	Questions      []string
	CollectionType string
	StarRatings    *bool
}

// SpaceUpdate lists the fields an owner may change; nil fields stay untouched.
type SpaceUpdate struct {
	Name           *string
	HeaderTitle    *string
	CustomMessage  *string
	Questions      []string
	QuestionsSet   bool
	CollectionType *string
	StarRatings    *bool
}

// IsEmpty reports whether the update carries no field at all.
func (update SpaceUpdate) IsEmpty() bool {
	return update.Name == nil &&
		update.HeaderTitle == nil &&
		update.CustomMessage == nil &&
		!update.QuestionsSet &&
		update.CollectionType == nil &&
		update.StarRatings == nil
}

// NewSpace constructs a Space with validated, normalized fields and a derived slug.
func NewSpace(input SpaceInput) (Space, error) {
	ownerID := strings.TrimSpace(input.OwnerID)
	if ownerID == "" {
		return Space{}, ErrInvalidSpaceOwner
	}

	name, nameErr := normalizeSpaceName(input.Name)
	if nameErr != nil {
		return Space{}, nameErr
	}
	slug := Slugify(name)
	if !usableSlug(slug) {
		return Space{}, fmt.Errorf("%w: name %q does not yield a usable slug", ErrInvalidSpaceSlug, name)
	}

	headerTitle, headerErr := normalizeOptionalText(input.HeaderTitle, spaceHeaderTitleMaxLength, ErrInvalidSpaceHeaderTitle)
	if headerErr != nil {
		return Space{}, headerErr
	}
	customMessage, messageErr := normalizeOptionalText(input.CustomMessage, spaceCustomMessageMaxLength, ErrInvalidSpaceCustomMessage)
	if messageErr != nil {
		return Space{}, messageErr
	}
	questions, questionsErr := normalizeQuestions(input.Questions)
	if questionsErr != nil {
		return Space{}, questionsErr
	}
	collectionType, collectionErr := normalizeCollectionType(input.CollectionType)
	if collectionErr != nil {
		return Space{}, collectionErr
	}

	starRatings := true
	if input.StarRatings != nil {
		starRatings = *input.StarRatings
	}

	return Space{
		ID:             uuid.NewString(),
		UserID:         ownerID,
		Name:           name,
		Slug:           slug,
		HeaderTitle:    headerTitle,
		CustomMessage:  customMessage,
		Questions:      questions,
		CollectionType: collectionType,
		StarRatings:    starRatings,
	}, nil
}

// Apply validates the update and copies it onto the space. It reports whether
// the name changed, in which case the caller owns slug regeneration.
func (space *Space) Apply(update SpaceUpdate) (bool, error) {
	if update.IsEmpty() {
		return false, ErrEmptySpaceUpdate
	}

	nameChanged := false
	if update.Name != nil {
		name, nameErr := normalizeSpaceName(*update.Name)
		if nameErr != nil {
			return false, nameErr
		}
		if !usableSlug(Slugify(name)) {
			return false, fmt.Errorf("%w: name %q does not yield a usable slug", ErrInvalidSpaceSlug, name)
		}
		nameChanged = name != space.Name
		space.Name = name
	}
	if update.HeaderTitle != nil {
		headerTitle, headerErr := normalizeOptionalText(*update.HeaderTitle, spaceHeaderTitleMaxLength, ErrInvalidSpaceHeaderTitle)
		if headerErr != nil {
			return false, headerErr
		}
		space.HeaderTitle = headerTitle
	}
	if update.CustomMessage != nil {
		customMessage, messageErr := normalizeOptionalText(*update.CustomMessage, spaceCustomMessageMaxLength, ErrInvalidSpaceCustomMessage)
		if messageErr != nil {
			return false, messageErr
		}
		space.CustomMessage = customMessage
	}
	if update.QuestionsSet {
		questions, questionsErr := normalizeQuestions(update.Questions)
		if questionsErr != nil {
			return false, questionsErr
		}
		space.Questions = questions
	}
	if update.CollectionType != nil {
		collectionType, collectionErr := normalizeCollectionType(*update.CollectionType)
		if collectionErr != nil {
			return false, collectionErr
		}
		space.CollectionType = collectionType
	}
	if update.StarRatings != nil {
		space.StarRatings = *update.StarRatings
	}
	return nameChanged, nil
}

// Public returns the fields safe to show to anonymous visitors.
func (space Space) Public() PublicSpace {
	questions := space.Questions
	if questions == nil {
		questions = []string{}
	}
	return PublicSpace{
		Name:           space.Name,
		Slug:           space.Slug,
		HeaderTitle:    space.HeaderTitle,
		CustomMessage:  space.CustomMessage,
		Questions:      questions,
		StarRatings:    space.StarRatings,
		CollectionType: space.CollectionType,
	}
}

// IsOwnedBy reports whether the external identity owns the space.
func (space Space) IsOwnedBy(userID string) bool {
	normalized := strings.TrimSpace(userID)
	return normalized != "" && space.UserID == normalized
}

func normalizeSpaceName(raw string) (string, error) {
	return normalizeRequiredText(raw, spaceNameMaxLength, ErrInvalidSpaceName)
}

func normalizeRequiredText(raw string, maxLength int, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: required", sentinel)
	}
	if len(trimmed) > maxLength {
		return "", fmt.Errorf("%w: too long", sentinel)
	}
	return trimmed, nil
}

func normalizeOptionalText(raw string, maxLength int, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > maxLength {
		return "", fmt.Errorf("%w: too long", sentinel)
	}
	return trimmed, nil
}

func normalizeQuestions(rawQuestions []string) ([]string, error) {
	questions := make([]string, 0, len(rawQuestions))
	for _, rawQuestion := range rawQuestions {
		trimmed := strings.TrimSpace(rawQuestion)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > spaceQuestionMaxLength {
			return nil, fmt.Errorf("%w: question too long", ErrInvalidSpaceQuestions)
		}
		questions = append(questions, trimmed)
	}
	if len(questions) > MaxSpaceQuestions {
		return nil, fmt.Errorf("%w: at most %d questions allowed", ErrInvalidSpaceQuestions, MaxSpaceQuestions)
	}
	return questions, nil
}

func normalizeCollectionType(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CollectionTypeTextOnly, nil
	}
	switch trimmed {
	case CollectionTypeTextOnly, CollectionTypeTextAndVideo, CollectionTypeVideoOnly:
		return trimmed, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidSpaceCollectionType, trimmed)
	}
}
