package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

// TestimonialStats summarizes the testimonials across an owner's spaces.
type TestimonialStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Moderation holds the owner-side testimonial operations.
type Moderation struct {
	database *gorm.DB
	logger   *zap.Logger
	strict   bool
}

// ModerationOption configures Moderation.
type ModerationOption func(*Moderation)

// WithStrictTransitions restricts approve and reject to pending testimonials.
func WithStrictTransitions(strict bool) ModerationOption {
	return func(moderation *Moderation) {
		moderation.strict = strict
	}
}

// NewModeration constructs a Moderation.
func NewModeration(database *gorm.DB, logger *zap.Logger, options ...ModerationOption) *Moderation {
	if logger == nil {
		logger = zap.NewNop()
	}
	moderation := &Moderation{database: database, logger: logger}
	for _, option := range options {
		if option != nil {
			option(moderation)
		}
	}
	return moderation
}

// Approve publishes the testimonial.
func (moderation *Moderation) Approve(ctx context.Context, testimonialID string, callerID string) (model.Testimonial, error) {
	return moderation.transition(ctx, testimonialID, callerID, model.TestimonialStatusApproved)
}

// Reject hides the testimonial from embeds.
func (moderation *Moderation) Reject(ctx context.Context, testimonialID string, callerID string) (model.Testimonial, error) {
	return moderation.transition(ctx, testimonialID, callerID, model.TestimonialStatusRejected)
}

func (moderation *Moderation) transition(ctx context.Context, testimonialID string, callerID string, target model.TestimonialStatus) (model.Testimonial, error) {
	testimonial, _, authorizeErr := authorizeTestimonial(ctx, moderation.database, testimonialID, callerID)
	if authorizeErr != nil {
		return model.Testimonial{}, authorizeErr
	}
	if !testimonial.Status.CanTransitionTo(target, moderation.strict) {
		return model.Testimonial{}, fmt.Errorf("%w: testimonial %s is already %s", ErrConflict, testimonial.ID, testimonial.Status)
	}

	query := moderation.database.WithContext(ctx).Model(&testimonial)
	if moderation.strict {
		query = query.Where("status = ?", model.TestimonialStatusPending)
	}
	result := query.Update("status", target)
	if result.Error != nil {
		return model.Testimonial{}, fmt.Errorf("update testimonial status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.Testimonial{}, fmt.Errorf("%w: testimonial %s changed concurrently", ErrConflict, testimonial.ID)
	}
	testimonial.Status = target
	moderation.logger.Info("testimonial_moderated", zap.String("testimonial_id", testimonial.ID), zap.String("status", string(target)))
	return testimonial, nil
}

// SetFeatured marks or unmarks the testimonial as featured in embeds.
func (moderation *Moderation) SetFeatured(ctx context.Context, testimonialID string, callerID string, featured bool) (model.Testimonial, error) {
	testimonial, _, authorizeErr := authorizeTestimonial(ctx, moderation.database, testimonialID, callerID)
	if authorizeErr != nil {
		return model.Testimonial{}, authorizeErr
	}
	if err := moderation.database.WithContext(ctx).Model(&testimonial).Update("featured", featured).Error; err != nil {
		return model.Testimonial{}, fmt.Errorf("update testimonial featured: %w", err)
	}
	testimonial.Featured = featured
	return testimonial, nil
}

// Delete removes the testimonial permanently.
func (moderation *Moderation) Delete(ctx context.Context, testimonialID string, callerID string) (model.Testimonial, error) {
	testimonial, _, authorizeErr := authorizeTestimonial(ctx, moderation.database, testimonialID, callerID)
	if authorizeErr != nil {
		return model.Testimonial{}, authorizeErr
	}
	if err := moderation.database.WithContext(ctx).Delete(&testimonial).Error; err != nil {
		return model.Testimonial{}, fmt.Errorf("delete testimonial: %w", err)
	}
	moderation.logger.Info("testimonial_deleted", zap.String("testimonial_id", testimonial.ID))
	return testimonial, nil
}

// ListForSpace returns the testimonials of a space the caller owns, newest
// first. An empty status filter returns every status.
func (moderation *Moderation) ListForSpace(ctx context.Context, slugOrID string, callerID string, statusFilter string) (model.Space, []model.Testimonial, error) {
	space, authorizeErr := authorizeSpace(ctx, moderation.database, slugOrID, callerID)
	if authorizeErr != nil {
		return model.Space{}, nil, authorizeErr
	}

	query := moderation.database.WithContext(ctx).Where("space_id = ?", space.ID)
	if strings.TrimSpace(statusFilter) != "" {
		status, statusErr := model.ParseTestimonialStatus(statusFilter)
		if statusErr != nil {
			return model.Space{}, nil, validationError(statusErr)
		}
		query = query.Where("status = ?", status)
	}

	testimonials := []model.Testimonial{}
	if err := query.Order("created_at DESC").Find(&testimonials).Error; err != nil {
		return model.Space{}, nil, fmt.Errorf("list testimonials: %w", err)
	}
	return space, testimonials, nil
}

type statusCount struct {
	Status string
	Count  int64
}

// Stats counts the testimonials across all of the caller's spaces.
func (moderation *Moderation) Stats(ctx context.Context, callerID string) (TestimonialStats, error) {
	var counts []statusCount
	err := moderation.database.WithContext(ctx).
		Model(&model.Testimonial{}).
		Select("testimonials.status AS status, COUNT(*) AS count").
		Joins("JOIN spaces ON spaces.id = testimonials.space_id").
		Where("spaces.user_id = ?", strings.TrimSpace(callerID)).
		Group("testimonials.status").
		Scan(&counts).Error
	if err != nil {
		return TestimonialStats{}, fmt.Errorf("count testimonials: %w", err)
	}

	var stats TestimonialStats
	for _, count := range counts {
		stats.Total += count.Count
		switch model.TestimonialStatus(count.Status) {
		case model.TestimonialStatusPending:
			stats.Pending = count.Count
		case model.TestimonialStatusApproved:
			stats.Approved = count.Count
		case model.TestimonialStatusRejected:
			stats.Rejected = count.Count
		}
	}
	return stats, nil
}

// OwnedSpaceIDs returns the ids of every space the caller owns.
func (moderation *Moderation) OwnedSpaceIDs(ctx context.Context, callerID string) ([]string, error) {
	spaceIDs := []string{}
	if err := moderation.database.WithContext(ctx).
		Model(&model.Space{}).
		Where("user_id = ?", strings.TrimSpace(callerID)).
		Pluck("id", &spaceIDs).Error; err != nil {
		return nil, fmt.Errorf("list owned spaces: %w", err)
	}
	return spaceIDs, nil
}

// DeleteOrphans removes testimonials whose space no longer exists and reports how many were removed.
func (moderation *Moderation) DeleteOrphans(ctx context.Context) (int64, error) {
	result := moderation.database.WithContext(ctx).
		Where("space_id NOT IN (?)", moderation.database.Model(&model.Space{}).Select("id")).
		Delete(&model.Testimonial{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete orphaned testimonials: %w", result.Error)
	}
	return result.RowsAffected, nil
}
