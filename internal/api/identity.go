package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
)

// IdentityHandlers expose user synchronization and the caller's profile.
type IdentityHandlers struct {
	identity *service.IdentityService
	logger   *zap.Logger
}

// NewIdentityHandlers constructs IdentityHandlers.
func NewIdentityHandlers(identity *service.IdentityService, logger *zap.Logger) *IdentityHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityHandlers{identity: identity, logger: logger}
}

type syncUserRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type userResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Email     string `json:"email,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func toUserResponse(user model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		UserID:    user.UserID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC().Unix(),
	}
}

// SyncUser upserts the local user record. When the request carries a bearer
// token the body may only name the token's own subject. The stored email comes
// from the verified token alone; a body email is never trusted.
func (handlers *IdentityHandlers) SyncUser(context *gin.Context) {
	var payload syncUserRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		writeError(context, http.StatusBadRequest, errorValueInvalidJSON, "request body must be JSON")
		return
	}
	userID := strings.TrimSpace(payload.UserID)
	email := ""

	if currentUser, authenticated := CurrentUserFromContext(context); authenticated {
		if userID == "" {
			userID = currentUser.UserID
		}
		if userID != currentUser.UserID {
			writeError(context, http.StatusForbidden, errorValueIdentityMismatch, "userId does not match the bearer token")
			return
		}
		email = currentUser.Email
	}

	user, created, syncErr := handlers.identity.Sync(context.Request.Context(), userID, email)
	if syncErr != nil {
		writeServiceError(context, handlers.logger, "sync_user", syncErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{
		jsonKeyMessage: "user synced",
		"user":         toUserResponse(user),
		"created":      created,
	})
}

// Me returns the authenticated caller's local record.
func (handlers *IdentityHandlers) Me(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	user, findErr := handlers.identity.Find(context.Request.Context(), currentUser.UserID)
	if findErr != nil {
		writeServiceError(context, handlers.logger, "load_current_user", findErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
