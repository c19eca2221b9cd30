package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

// PublicTestimonial is the projection of an approved testimonial shown on
// third-party pages. It never carries the author's email.
type PublicTestimonial struct {
	ID          string            `json:"id"`
	AuthorName  string            `json:"authorName"`
	Company     string            `json:"company,omitempty"`
	Avatar      string            `json:"avatar,omitempty"`
	Content     string            `json:"content"`
	Rating      *int              `json:"rating,omitempty"`
	Answers     []model.Answer    `json:"answers"`
	SocialLinks PublicSocialLinks `json:"socialLinks"`
	Featured    bool              `json:"featured"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// PublicSocialLinks mirrors model.SocialLinks for JSON output.
type PublicSocialLinks struct {
	Twitter  string `json:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

// SpaceEmbed is everything a space widget renders.
type SpaceEmbed struct {
	SpaceID      string              `json:"-"`
	Space        model.PublicSpace   `json:"space"`
	Testimonials []PublicTestimonial `json:"testimonials"`
}

// EmbedPublisher serves approved testimonials to anonymous readers.
type EmbedPublisher struct {
	database *gorm.DB
	logger   *zap.Logger
}

// NewEmbedPublisher constructs an EmbedPublisher.
func NewEmbedPublisher(database *gorm.DB, logger *zap.Logger) *EmbedPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedPublisher{database: database, logger: logger}
}

type approvedFilter struct {
	spaceID       string
	testimonialID string
}

// approvedTestimonials is the only query embeds read through, so the
// approved-only rule lives in one place. Testimonials whose space is gone are
// never published.
func (publisher *EmbedPublisher) approvedTestimonials(ctx context.Context, filter approvedFilter) ([]model.Testimonial, error) {
	database := publisher.database.WithContext(ctx)
	query := database.
		Where("status = ?", model.TestimonialStatusApproved).
		Where("space_id IN (?)", database.Model(&model.Space{}).Select("id"))
	if filter.spaceID != "" {
		query = query.Where("space_id = ?", filter.spaceID)
	}
	if filter.testimonialID != "" {
		query = query.Where("id = ?", filter.testimonialID)
	}

	testimonials := []model.Testimonial{}
	if err := query.Order("featured DESC").Order("created_at DESC").Find(&testimonials).Error; err != nil {
		return nil, fmt.Errorf("list approved testimonials: %w", err)
	}
	return testimonials, nil
}

// ForSpaceSlug returns the public space and its approved testimonials.
func (publisher *EmbedPublisher) ForSpaceSlug(ctx context.Context, slug string) (SpaceEmbed, error) {
	return publisher.forSpace(ctx, "slug", slug)
}

// ForSpaceID is ForSpaceSlug keyed by the internal space id.
func (publisher *EmbedPublisher) ForSpaceID(ctx context.Context, spaceID string) (SpaceEmbed, error) {
	return publisher.forSpace(ctx, "id", spaceID)
}

func (publisher *EmbedPublisher) forSpace(ctx context.Context, column string, value string) (SpaceEmbed, error) {
	identifier := strings.TrimSpace(value)
	if identifier == "" {
		return SpaceEmbed{}, notFoundError("space", identifier)
	}

	var space model.Space
	if err := publisher.database.WithContext(ctx).Where(column+" = ?", identifier).First(&space).Error; err != nil {
		return SpaceEmbed{}, storeError("load", "space", identifier, err)
	}

	testimonials, listErr := publisher.approvedTestimonials(ctx, approvedFilter{spaceID: space.ID})
	if listErr != nil {
		return SpaceEmbed{}, listErr
	}

	publicTestimonials := make([]PublicTestimonial, 0, len(testimonials))
	for _, testimonial := range testimonials {
		publicTestimonials = append(publicTestimonials, NewPublicTestimonial(testimonial))
	}
	return SpaceEmbed{
		SpaceID:      space.ID,
		Space:        space.Public(),
		Testimonials: publicTestimonials,
	}, nil
}

// ForTestimonial returns a single approved testimonial. Testimonials in any
// other state are reported missing.
func (publisher *EmbedPublisher) ForTestimonial(ctx context.Context, testimonialID string) (PublicTestimonial, error) {
	identifier := strings.TrimSpace(testimonialID)
	if identifier == "" {
		return PublicTestimonial{}, notFoundError("testimonial", identifier)
	}

	testimonials, listErr := publisher.approvedTestimonials(ctx, approvedFilter{testimonialID: identifier})
	if listErr != nil {
		return PublicTestimonial{}, listErr
	}
	if len(testimonials) == 0 {
		return PublicTestimonial{}, notFoundError("testimonial", identifier)
	}
	return NewPublicTestimonial(testimonials[0]), nil
}

// NewPublicTestimonial projects a testimonial for public display.
func NewPublicTestimonial(testimonial model.Testimonial) PublicTestimonial {
	answers := testimonial.Answers
	if answers == nil {
		answers = []model.Answer{}
	}
	return PublicTestimonial{
		ID:          testimonial.ID,
		AuthorName:  testimonial.Author.Name,
		Company:     testimonial.Author.Company,
		Avatar:      testimonial.Author.Avatar,
		Content:     testimonial.Content,
		Rating:      testimonial.Rating,
		Answers:     answers,
		SocialLinks: PublicSocialLinks(testimonial.SocialLinks),
		Featured:    testimonial.Featured,
		CreatedAt:   testimonial.CreatedAt,
	}
}
