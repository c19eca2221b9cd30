package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

// authorizeSpace loads a space by internal id or slug and confirms the caller
// owns it. An id match always wins over a slug match.
func authorizeSpace(ctx context.Context, database *gorm.DB, slugOrID string, callerID string) (model.Space, error) {
	identifier := strings.TrimSpace(slugOrID)
	if identifier == "" {
		return model.Space{}, notFoundError("space", identifier)
	}

	scoped := database.WithContext(ctx)
	var space model.Space
	err := scoped.Where("id = ?", identifier).First(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = scoped.Where("slug = ?", identifier).First(&space).Error
	}
	if err != nil {
		return model.Space{}, storeError("load", "space", identifier, err)
	}
	if !space.IsOwnedBy(callerID) {
		return model.Space{}, fmt.Errorf("%w: space %s", ErrForbidden, identifier)
	}
	return space, nil
}

// authorizeTestimonial loads a testimonial and its space and confirms the
// caller owns the space. A testimonial whose space is gone is reported missing.
func authorizeTestimonial(ctx context.Context, database *gorm.DB, testimonialID string, callerID string) (model.Testimonial, model.Space, error) {
	identifier := strings.TrimSpace(testimonialID)
	if identifier == "" {
		return model.Testimonial{}, model.Space{}, notFoundError("testimonial", identifier)
	}

	var testimonial model.Testimonial
	if err := database.WithContext(ctx).Where("id = ?", identifier).First(&testimonial).Error; err != nil {
		return model.Testimonial{}, model.Space{}, storeError("load", "testimonial", identifier, err)
	}

	var space model.Space
	if err := database.WithContext(ctx).Where("id = ?", testimonial.SpaceID).First(&space).Error; err != nil {
		return model.Testimonial{}, model.Space{}, storeError("load", "space", testimonial.SpaceID, err)
	}
	if !space.IsOwnedBy(callerID) {
		return model.Testimonial{}, model.Space{}, fmt.Errorf("%w: testimonial %s", ErrForbidden, identifier)
	}
	return testimonial, space, nil
}
