package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/storage"
)

// MaxSlugAttempts bounds the numeric suffixes tried when a renamed space collides.
const MaxSlugAttempts = 100

// SpaceRegistry owns the lifecycle of spaces.
type SpaceRegistry struct {
	database *gorm.DB
	logger   *zap.Logger
}

// NewSpaceRegistry constructs a SpaceRegistry.
func NewSpaceRegistry(database *gorm.DB, logger *zap.Logger) *SpaceRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpaceRegistry{database: database, logger: logger}
}

// Create persists a new space for the owner. The unique slug index decides
// collisions; a duplicate slug is reported as ErrConflict.
func (registry *SpaceRegistry) Create(ctx context.Context, ownerID string, input model.SpaceInput) (model.Space, error) {
	input.OwnerID = ownerID
	space, spaceErr := model.NewSpace(input)
	if spaceErr != nil {
		return model.Space{}, validationError(spaceErr)
	}

	if err := registry.database.WithContext(ctx).Create(&space).Error; err != nil {
		if storage.IsDuplicateKey(err) {
			return model.Space{}, fmt.Errorf("%w: slug %q is taken", ErrConflict, space.Slug)
		}
		return model.Space{}, fmt.Errorf("create space: %w", err)
	}
	registry.logger.Info("space_created", zap.String("space_id", space.ID), zap.String("slug", space.Slug))
	return space, nil
}

// ListByOwner returns the owner's spaces, newest first.
func (registry *SpaceRegistry) ListByOwner(ctx context.Context, ownerID string) ([]model.Space, error) {
	spaces := []model.Space{}
	if err := registry.database.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(ownerID)).
		Order("created_at DESC").
		Find(&spaces).Error; err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return spaces, nil
}

// GetOwned returns the full space for its owner.
func (registry *SpaceRegistry) GetOwned(ctx context.Context, slugOrID string, callerID string) (model.Space, error) {
	return authorizeSpace(ctx, registry.database, slugOrID, callerID)
}

// GetPublic looks a space up by slug, falling back to its exact name, and
// returns only the fields the collection form needs.
func (registry *SpaceRegistry) GetPublic(ctx context.Context, nameOrSlug string) (model.PublicSpace, error) {
	space, err := registry.findPublic(ctx, nameOrSlug)
	if err != nil {
		return model.PublicSpace{}, err
	}
	return space.Public(), nil
}

func (registry *SpaceRegistry) findPublic(ctx context.Context, nameOrSlug string) (model.Space, error) {
	identifier := strings.TrimSpace(nameOrSlug)
	if identifier == "" {
		return model.Space{}, notFoundError("space", identifier)
	}

	database := registry.database.WithContext(ctx)
	var space model.Space
	err := database.Where("slug = ?", identifier).First(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = database.Where("name = ?", identifier).Order("created_at ASC").First(&space).Error
	}
	if err != nil {
		return model.Space{}, storeError("load", "space", identifier, err)
	}
	return space, nil
}

// Update applies a partial update to a space the owner holds. A name change
// regenerates the slug, trying slug, slug1, slug2 and so on until the unique
// index accepts one.
func (registry *SpaceRegistry) Update(ctx context.Context, spaceID string, ownerID string, update model.SpaceUpdate) (model.Space, error) {
	space, loadErr := registry.loadOwned(ctx, spaceID, ownerID)
	if loadErr != nil {
		return model.Space{}, loadErr
	}

	nameChanged, applyErr := space.Apply(update)
	if applyErr != nil {
		return model.Space{}, validationError(applyErr)
	}

	database := registry.database.WithContext(ctx)
	if !nameChanged {
		if err := database.Save(&space).Error; err != nil {
			return model.Space{}, storeError("update", "space", space.ID, err)
		}
		return space, nil
	}

	baseSlug := model.Slugify(space.Name)
	for attempt := 0; attempt < MaxSlugAttempts; attempt++ {
		space.Slug = model.SlugCandidate(baseSlug, attempt)
		saveErr := database.Save(&space).Error
		if saveErr == nil {
			registry.logger.Info("space_slug_regenerated", zap.String("space_id", space.ID), zap.String("slug", space.Slug), zap.Int("attempt", attempt))
			return space, nil
		}
		if !storage.IsDuplicateKey(saveErr) {
			return model.Space{}, fmt.Errorf("update space: %w", saveErr)
		}
	}
	return model.Space{}, fmt.Errorf("%w: no free slug for %q after %d attempts", ErrConflict, baseSlug, MaxSlugAttempts)
}

// Delete removes the owner's space together with its testimonials.
func (registry *SpaceRegistry) Delete(ctx context.Context, spaceID string, ownerID string) error {
	return registry.database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var space model.Space
		if err := transaction.Where("id = ? AND user_id = ?", strings.TrimSpace(spaceID), strings.TrimSpace(ownerID)).First(&space).Error; err != nil {
			return storeError("load", "space", spaceID, err)
		}
		if err := transaction.Where("space_id = ?", space.ID).Delete(&model.Testimonial{}).Error; err != nil {
			return fmt.Errorf("delete testimonials: %w", err)
		}
		if err := transaction.Delete(&space).Error; err != nil {
			return fmt.Errorf("delete space: %w", err)
		}
		registry.logger.Info("space_deleted", zap.String("space_id", space.ID))
		return nil
	})
}

// loadOwned matches on (id, owner) so a foreign space is indistinguishable from a missing one.
func (registry *SpaceRegistry) loadOwned(ctx context.Context, spaceID string, ownerID string) (model.Space, error) {
	var space model.Space
	err := registry.database.WithContext(ctx).
		Where("id = ? AND user_id = ?", strings.TrimSpace(spaceID), strings.TrimSpace(ownerID)).
		First(&space).Error
	if err != nil {
		return model.Space{}, storeError("load", "space", spaceID, err)
	}
	return space, nil
}
