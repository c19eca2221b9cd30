package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
)

const (
	jsonKeyTestimonial  = "testimonial"
	jsonKeyTestimonials = "testimonials"
	jsonKeySpaceID      = "spaceId"
)

// TestimonialHandlers serve public intake and owner moderation.
type TestimonialHandlers struct {
	intake        *service.Intake
	moderation    *service.Moderation
	owners        ownerLookup
	logger        *zap.Logger
	broadcaster   *TestimonialEventBroadcaster
	notifier      TestimonialNotifier
	throttle      *intakeThrottle
	notifications sync.WaitGroup
}

// TestimonialHandlersConfig carries the optional collaborators of TestimonialHandlers.
type TestimonialHandlersConfig struct {
	Broadcaster      *TestimonialEventBroadcaster
	Notifier         TestimonialNotifier
	IntakeRateLimit  int
	IntakeRateWindow time.Duration
}

// NewTestimonialHandlers constructs TestimonialHandlers.
func NewTestimonialHandlers(intake *service.Intake, moderation *service.Moderation, owners *service.IdentityService, logger *zap.Logger, config TestimonialHandlersConfig) *TestimonialHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers := &TestimonialHandlers{
		intake:      intake,
		moderation:  moderation,
		logger:      logger,
		broadcaster: config.Broadcaster,
		notifier:    resolveTestimonialNotifier(config.Notifier),
		throttle:    newIntakeThrottle(config.IntakeRateWindow, config.IntakeRateLimit),
	}
	// A nil *IdentityService stored in the interface would compare non-nil.
	if owners != nil {
		handlers.owners = owners
	}
	return handlers
}

type submitTestimonialRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Company  string         `json:"company"`
	Avatar   string         `json:"avatar"`
	Content  string         `json:"content"`
	Rating   *int           `json:"rating"`
	Answers  []model.Answer `json:"answers"`
	Twitter  string         `json:"twitter"`
	LinkedIn string         `json:"linkedin"`
	Facebook string         `json:"facebook"`
}

type featureTestimonialRequest struct {
	Featured *bool `json:"featured"`
}

// Submit accepts an anonymous testimonial for the space named by slug.
func (handlers *TestimonialHandlers) Submit(context *gin.Context) {
	if handlers.throttle.isRateLimited(context.ClientIP()) {
		writeError(context, http.StatusTooManyRequests, errorValueRateLimited, "too many submissions, please wait")
		return
	}

	var payload submitTestimonialRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		writeError(context, http.StatusBadRequest, errorValueInvalidJSON, "request body must be JSON")
		return
	}

	testimonial, space, submitErr := handlers.intake.Submit(context.Request.Context(), context.Param("spaceSlug"), service.Submission{
		AuthorName:  payload.Name,
		AuthorEmail: payload.Email,
		Company:     payload.Company,
		Avatar:      payload.Avatar,
		Content:     payload.Content,
		Rating:      payload.Rating,
		Answers:     payload.Answers,
		SocialLinks: model.SocialLinks{
			Twitter:  payload.Twitter,
			LinkedIn: payload.LinkedIn,
			Facebook: payload.Facebook,
		},
	})
	if submitErr != nil {
		writeServiceError(context, handlers.logger, "save_testimonial", submitErr)
		return
	}

	handlers.broadcaster.Broadcast(newTestimonialEvent(TestimonialEventCreated, testimonial))
	if handlers.owners != nil {
		handlers.notifications.Add(1)
		go notifyOwner(handlers.logger, handlers.owners, handlers.notifier, space, testimonial, handlers.notifications.Done)
	}

	context.JSON(http.StatusCreated, gin.H{
		jsonKeyMessage:     "testimonial submitted",
		jsonKeyTestimonial: toTestimonialResponse(testimonial),
	})
}

// WaitForNotifications blocks until in-flight owner notifications finish.
func (handlers *TestimonialHandlers) WaitForNotifications() {
	handlers.notifications.Wait()
}

// ListForSpace returns the testimonials of one of the caller's spaces.
func (handlers *TestimonialHandlers) ListForSpace(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	space, testimonials, listErr := handlers.moderation.ListForSpace(context.Request.Context(), context.Param("slug"), currentUser.UserID, context.Query("status"))
	if listErr != nil {
		writeServiceError(context, handlers.logger, "list_testimonials", listErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{
		jsonKeySpaceID:      space.ID,
		jsonKeyTestimonials: toTestimonialResponses(testimonials),
	})
}

// Stats returns testimonial counts across the caller's spaces.
func (handlers *TestimonialHandlers) Stats(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	stats, statsErr := handlers.moderation.Stats(context.Request.Context(), currentUser.UserID)
	if statsErr != nil {
		writeServiceError(context, handlers.logger, "testimonial_stats", statsErr)
		return
	}
	context.JSON(http.StatusOK, stats)
}

// Approve publishes a testimonial.
func (handlers *TestimonialHandlers) Approve(context *gin.Context) {
	handlers.moderate(context, "approve_testimonial", handlers.moderation.Approve)
}

// Reject hides a testimonial.
func (handlers *TestimonialHandlers) Reject(context *gin.Context) {
	handlers.moderate(context, "reject_testimonial", handlers.moderation.Reject)
}

type moderationOperation func(ctx context.Context, testimonialID string, callerID string) (model.Testimonial, error)

func (handlers *TestimonialHandlers) moderate(context *gin.Context, event string, operation moderationOperation) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	testimonial, moderateErr := operation(context.Request.Context(), strings.TrimSpace(context.Param("id")), currentUser.UserID)
	if moderateErr != nil {
		writeServiceError(context, handlers.logger, event, moderateErr)
		return
	}
	handlers.broadcaster.Broadcast(newTestimonialEvent(TestimonialEventUpdated, testimonial))
	context.JSON(http.StatusOK, gin.H{jsonKeyTestimonial: toTestimonialResponse(testimonial)})
}

// Feature toggles whether a testimonial is pinned first in embeds.
func (handlers *TestimonialHandlers) Feature(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	var payload featureTestimonialRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil || payload.Featured == nil {
		writeError(context, http.StatusBadRequest, errorValueInvalidJSON, "request body must be JSON with a featured flag")
		return
	}
	testimonial, featureErr := handlers.moderation.SetFeatured(context.Request.Context(), strings.TrimSpace(context.Param("id")), currentUser.UserID, *payload.Featured)
	if featureErr != nil {
		writeServiceError(context, handlers.logger, "feature_testimonial", featureErr)
		return
	}
	handlers.broadcaster.Broadcast(newTestimonialEvent(TestimonialEventUpdated, testimonial))
	context.JSON(http.StatusOK, gin.H{jsonKeyTestimonial: toTestimonialResponse(testimonial)})
}

// Delete removes a testimonial permanently.
func (handlers *TestimonialHandlers) Delete(context *gin.Context) {
	currentUser, ok := requireCurrentUser(context)
	if !ok {
		return
	}
	testimonial, deleteErr := handlers.moderation.Delete(context.Request.Context(), strings.TrimSpace(context.Param("id")), currentUser.UserID)
	if deleteErr != nil {
		writeServiceError(context, handlers.logger, "delete_testimonial", deleteErr)
		return
	}
	handlers.broadcaster.Broadcast(newTestimonialEvent(TestimonialEventDeleted, testimonial))
	context.JSON(http.StatusOK, gin.H{jsonKeyMessage: "testimonial deleted"})
}

// StreamEvents streams testimonial events for the caller's spaces as server-sent events.
func (handlers *TestimonialHandlers) StreamEvents(ginContext *gin.Context) {
	currentUser, ok := requireCurrentUser(ginContext)
	if !ok {
		return
	}
	flusher, flushable := ginContext.Writer.(http.Flusher)
	if !flushable {
		writeError(ginContext, http.StatusServiceUnavailable, errorValueStreamUnavailable, "event stream unavailable")
		return
	}

	requestContext := ginContext.Request.Context()
	ownedSpaces, ownedErr := handlers.ownedSpaceSet(requestContext, currentUser.UserID)
	if ownedErr != nil {
		writeServiceError(ginContext, handlers.logger, "stream_testimonial_events", ownedErr)
		return
	}

	subscription := handlers.broadcaster.Subscribe()
	if subscription == nil {
		writeError(ginContext, http.StatusServiceUnavailable, errorValueStreamUnavailable, "event stream unavailable")
		return
	}
	defer subscription.Close()

	ginContext.Header("Content-Type", "text/event-stream")
	ginContext.Header("Cache-Control", "no-cache")
	ginContext.Header("Connection", "keep-alive")
	ginContext.Writer.WriteHeaderNow()
	flusher.Flush()

	for {
		select {
		case <-requestContext.Done():
			return
		case event, open := <-subscription.Events():
			if !open {
				return
			}
			if _, owned := ownedSpaces[event.SpaceID]; !owned {
				refreshed, refreshErr := handlers.ownedSpaceSet(requestContext, currentUser.UserID)
				if refreshErr != nil {
					handlers.logger.Debug("refresh_owned_spaces_failed", zap.Error(refreshErr))
					continue
				}
				ownedSpaces = refreshed
				if _, owned = ownedSpaces[event.SpaceID]; !owned {
					continue
				}
			}
			serializedPayload, marshalErr := json.Marshal(event)
			if marshalErr != nil {
				handlers.logger.Debug("marshal_testimonial_event_failed", zap.Error(marshalErr))
				continue
			}
			var buffer bytes.Buffer
			buffer.WriteString("event: ")
			buffer.WriteString(event.Type)
			buffer.WriteString("\ndata: ")
			buffer.Write(serializedPayload)
			buffer.WriteString("\n\n")
			if _, writeErr := ginContext.Writer.Write(buffer.Bytes()); writeErr != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (handlers *TestimonialHandlers) ownedSpaceSet(ctx context.Context, callerID string) (map[string]struct{}, error) {
	spaceIDs, listErr := handlers.moderation.OwnedSpaceIDs(ctx, callerID)
	if listErr != nil {
		return nil, listErr
	}
	owned := make(map[string]struct{}, len(spaceIDs))
	for _, spaceID := range spaceIDs {
		owned[spaceID] = struct{}{}
	}
	return owned, nil
}
