package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
)

const (
	jsonKeySpace  = "space"
	jsonKeySpaces = "spaces"
)

// SpaceHandlers serve the space registry over JSON.
type SpaceHandlers struct {
	spaces       *service.SpaceRegistry
	logger       *zap.Logger
	spaceDeleted func()
}

// SpaceHandlersOption configures SpaceHandlers.
type SpaceHandlersOption func(*SpaceHandlers)

// WithSpaceDeletedHook runs hook after every successful space deletion.
func WithSpaceDeletedHook(hook func()) SpaceHandlersOption {
	return func(handlers *SpaceHandlers) {
		handlers.spaceDeleted = hook
	}
}

// NewSpaceHandlers constructs SpaceHandlers.
func NewSpaceHandlers(spaces *service.SpaceRegistry, logger *zap.Logger, options ...SpaceHandlersOption) *SpaceHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers := &SpaceHandlers{spaces: spaces, logger: logger}
	for _, option := range options {
		if option != nil {
			option(handlers)
		}
	}
	return handlers
}

type createSpaceRequest struct {
	Name           string   `json:"name"`
	HeaderTitle    string   `json:"headerTitle"`
	CustomMessage  string   `json:"customMessage"`
	Questions      []string `json:"questions"`
	CollectionType string   `json:"collectionType"`
	StarRatings    *bool    `json:"starRatings"`
}

type updateSpaceRequest struct {
	Name           *string   `json:"name"`
	HeaderTitle    *string   `json:"headerTitle"`
	CustomMessage  *string   `json:"customMessage"`
	Questions      *[]string `json:"questions"`
	CollectionType *string   `json:"collectionType"`
	StarRatings    *bool     `json:"starRatings"`
}

func (request updateSpaceRequest) toUpdate() model.SpaceUpdate {
	update := model.SpaceUpdate{
		Name:           request.Name,
		HeaderTitle:    request.HeaderTitle,
		CustomMessage:  request.CustomMessage,
		CollectionType: request.CollectionType,
		StarRatings:    request.StarRatings,
	}
	if request.Questions != nil {
		update.Questions = *request.Questions
		update.QuestionsSet = true
	}
	return update
}

// CreateSpace creates a space owned by the caller.
func (handlers *SpaceHandlers) CreateSpace(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	var payload createSpaceRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		writeError(context, http.StatusBadRequest, errorValueInvalidJSON, "request body must be JSON")
		return
	}

	space, createErr := handlers.spaces.Create(context.Request.Context(), currentUser.UserID, model.SpaceInput{
		Name:           payload.Name,
		HeaderTitle:    payload.HeaderTitle,
		CustomMessage:  payload.CustomMessage,
		Questions:      payload.Questions,
		CollectionType: payload.CollectionType,
		StarRatings:    payload.StarRatings,
	})
	if createErr != nil {
		writeServiceError(context, handlers.logger, "create_space", createErr)
		return
	}
	context.JSON(http.StatusCreated, gin.H{jsonKeySpace: toSpaceResponse(space)})
}

// ListSpaces returns the caller's spaces, newest first.
func (handlers *SpaceHandlers) ListSpaces(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	spaces, listErr := handlers.spaces.ListByOwner(context.Request.Context(), currentUser.UserID)
	if listErr != nil {
		writeServiceError(context, handlers.logger, "list_spaces", listErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{jsonKeySpaces: toSpaceResponses(spaces)})
}

// GetPublicSpace returns the public view of a space by slug or name.
func (handlers *SpaceHandlers) GetPublicSpace(context *gin.Context) {
	publicSpace, getErr := handlers.spaces.GetPublic(context.Request.Context(), context.Param("spaceName"))
	if getErr != nil {
		writeServiceError(context, handlers.logger, "get_public_space", getErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{jsonKeySpace: publicSpace})
}

// GetOwnedSpace returns the full space for the editor.
func (handlers *SpaceHandlers) GetOwnedSpace(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	space, getErr := handlers.spaces.GetOwned(context.Request.Context(), context.Param("spaceName"), currentUser.UserID)
	if getErr != nil {
		writeServiceError(context, handlers.logger, "get_owned_space", getErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{jsonKeySpace: toSpaceResponse(space)})
}

// UpdateSpace applies a partial update to one of the caller's spaces.
func (handlers *SpaceHandlers) UpdateSpace(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	var payload updateSpaceRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		writeError(context, http.StatusBadRequest, errorValueInvalidJSON, "request body must be JSON")
		return
	}

	space, updateErr := handlers.spaces.Update(context.Request.Context(), strings.TrimSpace(context.Param("id")), currentUser.UserID, payload.toUpdate())
	if updateErr != nil {
		writeServiceError(context, handlers.logger, "update_space", updateErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{jsonKeySpace: toSpaceResponse(space)})
}

// DeleteSpace removes one of the caller's spaces and its testimonials.
func (handlers *SpaceHandlers) DeleteSpace(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	if deleteErr := handlers.spaces.Delete(context.Request.Context(), strings.TrimSpace(context.Param("id")), currentUser.UserID); deleteErr != nil {
		writeServiceError(context, handlers.logger, "delete_space", deleteErr)
		return
	}
	if handlers.spaceDeleted != nil {
		handlers.spaceDeleted()
	}
	context.JSON(http.StatusOK, gin.H{jsonKeyMessage: "space deleted"})
}
