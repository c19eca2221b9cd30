package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

// Submission is an anonymous testimonial posted through a collection form.
type Submission struct {
	AuthorName  string
	AuthorEmail string
	Company     string
	Avatar      string
	Content     string
	Rating      *int
	Answers     []model.Answer
	SocialLinks model.SocialLinks
}

// Intake accepts public testimonial submissions.
type Intake struct {
	database *gorm.DB
	logger   *zap.Logger
}

// NewIntake constructs an Intake.
func NewIntake(database *gorm.DB, logger *zap.Logger) *Intake {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Intake{database: database, logger: logger}
}

// Submit stores a pending testimonial for the space identified by slug and
// returns it with the space it belongs to.
func (intake *Intake) Submit(ctx context.Context, spaceSlug string, submission Submission) (model.Testimonial, model.Space, error) {
	slug := strings.TrimSpace(spaceSlug)
	if slug == "" {
		return model.Testimonial{}, model.Space{}, notFoundError("space", slug)
	}

	database := intake.database.WithContext(ctx)
	var space model.Space
	if err := database.Where("slug = ?", slug).First(&space).Error; err != nil {
		return model.Testimonial{}, model.Space{}, storeError("load", "space", slug, err)
	}

	if space.StarRatings && submission.Rating == nil {
		return model.Testimonial{}, model.Space{}, validationError(fmt.Errorf("%w: required", model.ErrInvalidTestimonialRating))
	}

	answers := submission.Answers
	if questionCount := len(space.Questions); questionCount > 0 && len(answers) > questionCount {
		answers = answers[:questionCount]
	}

	testimonial, testimonialErr := model.NewTestimonial(model.TestimonialInput{
		SpaceID:     space.ID,
		AuthorName:  submission.AuthorName,
		AuthorEmail: submission.AuthorEmail,
		Company:     submission.Company,
		Avatar:      submission.Avatar,
		Content:     submission.Content,
		Rating:      submission.Rating,
		Answers:     answers,
		SocialLinks: submission.SocialLinks,
		Source:      model.TestimonialSourceDirect,
	})
	if testimonialErr != nil {
		return model.Testimonial{}, model.Space{}, validationError(testimonialErr)
	}

	if err := database.Create(&testimonial).Error; err != nil {
		return model.Testimonial{}, model.Space{}, fmt.Errorf("create testimonial: %w", err)
	}
	intake.logger.Info("testimonial_submitted", zap.String("testimonial_id", testimonial.ID), zap.String("space_id", space.ID))
	return testimonial, space, nil
}
