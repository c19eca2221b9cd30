package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

// IdentityService keeps a local record of every identity-provider account.
type IdentityService struct {
	database *gorm.DB
	logger   *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(database *gorm.DB, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{database: database, logger: logger}
}

// Sync upserts the user keyed by the external identity and reports whether a
// new record was created. Repeated calls never create a second record. A
// non-empty email replaces the stored one; callers pass only verified emails.
func (service *IdentityService) Sync(ctx context.Context, userID string, email string) (model.User, bool, error) {
	candidate, candidateErr := model.NewUser(userID, email)
	if candidateErr != nil {
		return model.User{}, false, validationError(candidateErr)
	}

	database := service.database.WithContext(ctx)
	insertResult := database.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&candidate)
	if insertResult.Error != nil {
		return model.User{}, false, storeError("sync", "user", candidate.UserID, insertResult.Error)
	}
	created := insertResult.RowsAffected == 1

	var user model.User
	if err := database.Where("user_id = ?", candidate.UserID).First(&user).Error; err != nil {
		return model.User{}, false, storeError("load", "user", candidate.UserID, err)
	}

	if candidate.Email != "" && candidate.Email != user.Email {
		if err := database.Model(&user).Update("email", candidate.Email).Error; err != nil {
			return model.User{}, false, storeError("update", "user", candidate.UserID, err)
		}
		user.Email = candidate.Email
	}

	if created {
		service.logger.Info("user_created", zap.String("user_id", user.UserID))
	}
	return user, created, nil
}

// Find returns the local record for the external identity.
func (service *IdentityService) Find(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	if err := service.database.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return model.User{}, storeError("load", "user", userID, err)
	}
	return user, nil
}
