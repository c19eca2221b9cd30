package storage

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

var duplicateKeyMessageFragments = []string{
	"unique constraint failed",
	"duplicate key value",
	"sqlstate 23505",
}

// AutoMigrate runs database migrations for the storage layer models.
func AutoMigrate(database *gorm.DB) error {
	return database.AutoMigrate(model.Models()...)
}

// IsDuplicateKey reports whether err is a unique index violation. Drivers that
// do not translate their errors are recognized by message.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lowered := strings.ToLower(err.Error())
	for _, fragment := range duplicateKeyMessageFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}
