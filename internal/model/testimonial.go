package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// TestimonialStatus is the moderation state of a testimonial.
type TestimonialStatus string

const (
	TestimonialStatusPending  TestimonialStatus = "pending"
	TestimonialStatusApproved TestimonialStatus = "approved"
	TestimonialStatusRejected TestimonialStatus = "rejected"
)

// TestimonialSource records how a testimonial entered the system.
type TestimonialSource string

const (
	TestimonialSourceDirect TestimonialSource = "direct"
	TestimonialSourceImport TestimonialSource = "import"
	TestimonialSourceSocial TestimonialSource = "social"
)

const (
	MinTestimonialRating = 1
	MaxTestimonialRating = 5

	testimonialAuthorNameMaxLength    = 200
	testimonialAuthorEmailMaxLength   = 320
	testimonialAuthorCompanyMaxLength = 200
	testimonialURLMaxLength           = 1000
	testimonialContentMaxLength       = 5000
	testimonialAnswerMaxLength        = 2000
	testimonialMaxAnswers             = 20
)

var (
	ErrInvalidTestimonialSpaceID     = errors.New("invalid_testimonial_space_id")
	ErrInvalidTestimonialAuthorName  = errors.New("invalid_testimonial_author_name")
	ErrInvalidTestimonialAuthorEmail = errors.New("invalid_testimonial_author_email")
	ErrInvalidTestimonialAuthorField = errors.New("invalid_testimonial_author_field")
	ErrInvalidTestimonialContent     = errors.New("invalid_testimonial_content")
	ErrInvalidTestimonialRating      = errors.New("invalid_testimonial_rating")
	ErrInvalidTestimonialAnswers     = errors.New("invalid_testimonial_answers")
	ErrInvalidTestimonialSocialLink  = errors.New("invalid_testimonial_social_link")
	ErrInvalidTestimonialStatus      = errors.New("invalid_testimonial_status")
	ErrInvalidTestimonialSource      = errors.New("invalid_testimonial_source")
)

// IsValid reports whether the status is one of the known moderation states.
func (status TestimonialStatus) IsValid() bool {
	switch status {
	case TestimonialStatusPending, TestimonialStatusApproved, TestimonialStatusRejected:
		return true
	default:
		return false
	}
}

// IsModerated reports whether an owner already decided on the testimonial.
func (status TestimonialStatus) IsModerated() bool {
	return status == TestimonialStatusApproved || status == TestimonialStatusRejected
}

// CanTransitionTo reports whether moderation may move a testimonial from the
// receiver status to target. Moderation never returns a testimonial to pending.
// In strict mode only pending testimonials may be moderated.
func (status TestimonialStatus) CanTransitionTo(target TestimonialStatus, strict bool) bool {
	if !target.IsModerated() || !status.IsValid() {
		return false
	}
	if strict {
		return status == TestimonialStatusPending
	}
	return true
}

// ParseTestimonialStatus validates a status filter value.
func ParseTestimonialStatus(raw string) (TestimonialStatus, error) {
	status := TestimonialStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidTestimonialStatus, raw)
	}
	return status, nil
}

// IsValid reports whether the source is a known intake channel.
func (source TestimonialSource) IsValid() bool {
	switch source {
	case TestimonialSourceDirect, TestimonialSourceImport, TestimonialSourceSocial:
		return true
	default:
		return false
	}
}

// TestimonialAuthor identifies the person who wrote a testimonial.
type TestimonialAuthor struct {
	Name    string `gorm:"not null;size:200"`
	Email   string `gorm:"size:320"`
	Company string `gorm:"size:200"`
	Avatar  string `gorm:"size:1000"`
}

// SocialLinks are optional profile links shown next to a testimonial.
type SocialLinks struct {
	Twitter  string `gorm:"size:1000"`
	LinkedIn string `gorm:"size:1000"`
	Facebook string `gorm:"size:1000"`
}

// Answer pairs one of the space's prompts with the author's reply.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Testimonial is a single submission collected for a space.
type Testimonial struct {
	ID          string            `gorm:"primaryKey;size:36"`
	SpaceID     string            `gorm:"not null;size:36;index"`
	Author      TestimonialAuthor `gorm:"embedded;embeddedPrefix:author_"`
	Content     string            `gorm:"not null;size:5000"`
	Rating      *int
	Answers     []Answer          `gorm:"serializer:json;type:text"`
	Status      TestimonialStatus `gorm:"not null;size:16;index"`
	Source      TestimonialSource `gorm:"not null;size:16"`
	SocialLinks SocialLinks       `gorm:"embedded;embeddedPrefix:social_"`
	Featured    bool              `gorm:"not null"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime"`
}

// TestimonialInput holds the raw values submitted through the collection form.
type TestimonialInput struct {
	SpaceID     string
	AuthorName  string
	AuthorEmail string
	Company     string
	Avatar      string
	Content     string
	Rating      *int
	Answers     []Answer
	SocialLinks SocialLinks
	Source      TestimonialSource
}

// NewTestimonial constructs a pending Testimonial with validated, normalized fields.
func NewTestimonial(input TestimonialInput) (Testimonial, error) {
	spaceID := strings.TrimSpace(input.SpaceID)
	if spaceID == "" {
		return Testimonial{}, ErrInvalidTestimonialSpaceID
	}

	author, authorErr := normalizeTestimonialAuthor(input)
	if authorErr != nil {
		return Testimonial{}, authorErr
	}

	content, contentErr := normalizeRequiredText(input.Content, testimonialContentMaxLength, ErrInvalidTestimonialContent)
	if contentErr != nil {
		return Testimonial{}, contentErr
	}

	var rating *int
	if input.Rating != nil {
		if *input.Rating < MinTestimonialRating || *input.Rating > MaxTestimonialRating {
			return Testimonial{}, fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidTestimonialRating, *input.Rating, MinTestimonialRating, MaxTestimonialRating)
		}
		ratingValue := *input.Rating
		rating = &ratingValue
	}

	answers, answersErr := normalizeAnswers(input.Answers)
	if answersErr != nil {
		return Testimonial{}, answersErr
	}

	socialLinks, socialErr := normalizeSocialLinks(input.SocialLinks)
	if socialErr != nil {
		return Testimonial{}, socialErr
	}

	source := input.Source
	if source == "" {
		source = TestimonialSourceDirect
	}
	if !source.IsValid() {
		return Testimonial{}, fmt.Errorf("%w: %s", ErrInvalidTestimonialSource, source)
	}

	return Testimonial{
		ID:          uuid.NewString(),
		SpaceID:     spaceID,
		Author:      author,
		Content:     content,
		Rating:      rating,
		Answers:     answers,
		Status:      TestimonialStatusPending,
		Source:      source,
		SocialLinks: socialLinks,
	}, nil
}

// IsPublished reports whether embeds may show the testimonial.
func (testimonial Testimonial) IsPublished() bool {
	return testimonial.Status == TestimonialStatusApproved
}

func normalizeTestimonialAuthor(input TestimonialInput) (TestimonialAuthor, error) {
	name, nameErr := normalizeRequiredText(input.AuthorName, testimonialAuthorNameMaxLength, ErrInvalidTestimonialAuthorName)
	if nameErr != nil {
		return TestimonialAuthor{}, nameErr
	}

	email := strings.ToLower(strings.TrimSpace(input.AuthorEmail))
	if email != "" {
		if len(email) > testimonialAuthorEmailMaxLength || !govalidator.IsEmail(email) {
			return TestimonialAuthor{}, fmt.Errorf("%w: %s", ErrInvalidTestimonialAuthorEmail, email)
		}
	}

	company, companyErr := normalizeOptionalText(input.Company, testimonialAuthorCompanyMaxLength, ErrInvalidTestimonialAuthorField)
	if companyErr != nil {
		return TestimonialAuthor{}, companyErr
	}

	avatar, avatarErr := normalizeOptionalURL(input.Avatar, ErrInvalidTestimonialAuthorField)
	if avatarErr != nil {
		return TestimonialAuthor{}, avatarErr
	}

	return TestimonialAuthor{
		Name:    name,
		Email:   email,
		Company: company,
		Avatar:  avatar,
	}, nil
}

func normalizeAnswers(rawAnswers []Answer) ([]Answer, error) {
	if len(rawAnswers) > testimonialMaxAnswers {
		return nil, fmt.Errorf("%w: too many answers", ErrInvalidTestimonialAnswers)
	}
	answers := make([]Answer, 0, len(rawAnswers))
	for _, rawAnswer := range rawAnswers {
		question := strings.TrimSpace(rawAnswer.Question)
		answer := strings.TrimSpace(rawAnswer.Answer)
		if len(question) > spaceQuestionMaxLength || len(answer) > testimonialAnswerMaxLength {
			return nil, fmt.Errorf("%w: answer too long", ErrInvalidTestimonialAnswers)
		}
		answers = append(answers, Answer{Question: question, Answer: answer})
	}
	return answers, nil
}

func normalizeSocialLinks(raw SocialLinks) (SocialLinks, error) {
	twitter, twitterErr := normalizeOptionalURL(raw.Twitter, ErrInvalidTestimonialSocialLink)
	if twitterErr != nil {
		return SocialLinks{}, twitterErr
	}
	linkedIn, linkedInErr := normalizeOptionalURL(raw.LinkedIn, ErrInvalidTestimonialSocialLink)
	if linkedInErr != nil {
		return SocialLinks{}, linkedInErr
	}
	facebook, facebookErr := normalizeOptionalURL(raw.Facebook, ErrInvalidTestimonialSocialLink)
	if facebookErr != nil {
		return SocialLinks{}, facebookErr
	}
	return SocialLinks{Twitter: twitter, LinkedIn: linkedIn, Facebook: facebook}, nil
}

func normalizeOptionalURL(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) > testimonialURLMaxLength || !govalidator.IsURL(trimmed) {
		return "", fmt.Errorf("%w: %s", sentinel, trimmed)
	}
	lowered := strings.ToLower(trimmed)
	if strings.HasPrefix(lowered, "javascript:") || strings.HasPrefix(lowered, "data:") {
		return "", fmt.Errorf("%w: %s", sentinel, trimmed)
	}
	return trimmed, nil
}
