package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
	"github.com/MarkoPoloResearchLab/kudos/internal/testutil"
)

const (
	testSigningKey     = "test-signing-key"
	testOwnerID        = "user_owner"
	testOwnerEmail     = "owner@example.com"
	testStrangerID     = "user_stranger"
	testPublicBaseURL  = "https://kudos.example"
	testSubmissionBody = `{"name":"Jane","email":"jane@example.com","content":"Great!"}`
)

type apiHarness struct {
	database     *gorm.DB
	router       *gin.Engine
	spaces       *service.SpaceRegistry
	moderation   *service.Moderation
	identity     *service.IdentityService
	testimonials *TestimonialHandlers
	broadcaster  *TestimonialEventBroadcaster
}

type harnessOptions struct {
	notifier        TestimonialNotifier
	intakeRateLimit int
	moderation      []service.ModerationOption
}

func newAPIHarness(testingT *testing.T, options harnessOptions) *apiHarness {
	testingT.Helper()
	gin.SetMode(gin.TestMode)

	database := testutil.OpenMigratedDatabase(testingT)
	logger := zap.NewNop()
	identity := service.NewIdentityService(database, logger)
	spaces := service.NewSpaceRegistry(database, logger)
	intake := service.NewIntake(database, logger)
	moderation := service.NewModeration(database, logger, options.moderation...)
	publisher := service.NewEmbedPublisher(database, logger)

	validator, validatorErr := NewTokenValidator(AuthConfig{SigningKey: testSigningKey})
	require.NoError(testingT, validatorErr)
	authManager := NewAuthManager(validator, identity, logger)

	broadcaster := NewTestimonialEventBroadcaster()
	testingT.Cleanup(broadcaster.Close)

	identityHandlers := NewIdentityHandlers(identity, logger)
	spaceHandlers := NewSpaceHandlers(spaces, logger)
	testimonialHandlers := NewTestimonialHandlers(intake, moderation, identity, logger, TestimonialHandlersConfig{
		Broadcaster:     broadcaster,
		Notifier:        options.notifier,
		IntakeRateLimit: options.intakeRateLimit,
	})
	embedHandlers := NewEmbedHandlers(publisher, testPublicBaseURL, logger)

	router := gin.New()
	router.POST("/api/auth/user", authManager.OptionalAuthentication(), identityHandlers.SyncUser)
	router.GET("/api/spaces/:spaceName", spaceHandlers.GetPublicSpace)
	router.POST("/api/testimonials/:spaceSlug", testimonialHandlers.Submit)
	router.GET("/api/embed/space/:slug", embedHandlers.SpaceJSON)
	router.GET("/api/embed/testimonial/:id", embedHandlers.TestimonialJSON)
	router.GET("/api/embed/testimonial/:id/iframe", embedHandlers.TestimonialIframe)
	router.GET("/api/embed/testimonial/:id/script.js", embedHandlers.TestimonialScript)
	router.GET("/api/embed/:spaceId", embedHandlers.SpaceIframe)
	router.GET("/api/embed/:spaceId/script.js", embedHandlers.SpaceScript)

	protected := router.Group("/api", authManager.RequireAuthenticatedJSON())
	protected.GET("/me", identityHandlers.Me)
	protected.POST("/spaces", spaceHandlers.CreateSpace)
	protected.GET("/spaces", spaceHandlers.ListSpaces)
	protected.GET("/spaces/:spaceName/owned", spaceHandlers.GetOwnedSpace)
	protected.PUT("/spaces/:id", spaceHandlers.UpdateSpace)
	protected.DELETE("/spaces/:id", spaceHandlers.DeleteSpace)
	protected.GET("/testimonials/space/:slug", testimonialHandlers.ListForSpace)
	protected.GET("/testimonials/stats", testimonialHandlers.Stats)
	protected.PATCH("/testimonials/:id/approve", testimonialHandlers.Approve)
	protected.PATCH("/testimonials/:id/reject", testimonialHandlers.Reject)
	protected.PATCH("/testimonials/:id/feature", testimonialHandlers.Feature)
	protected.DELETE("/testimonials/:id", testimonialHandlers.Delete)

	return &apiHarness{
		database:     database,
		router:       router,
		spaces:       spaces,
		moderation:   moderation,
		identity:     identity,
		testimonials: testimonialHandlers,
		broadcaster:  broadcaster,
	}
}

func signTestToken(testingT *testing.T, subject string, email string) string {
	testingT.Helper()
	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(testingT, signErr)
	return signed
}

func (harness *apiHarness) perform(testingT *testing.T, method string, path string, body string, token string) *httptest.ResponseRecorder {
	testingT.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)
	return recorder
}

func (harness *apiHarness) createSpace(testingT *testing.T, ownerID string, name string) model.Space {
	testingT.Helper()
	starRatings := false
	space, createErr := harness.spaces.Create(context.Background(), ownerID, model.SpaceInput{Name: name, StarRatings: &starRatings})
	require.NoError(testingT, createErr)
	return space
}

func (harness *apiHarness) submit(testingT *testing.T, slug string) testimonialResponse {
	testingT.Helper()
	recorder := harness.perform(testingT, http.MethodPost, "/api/testimonials/"+slug, testSubmissionBody, "")
	require.Equal(testingT, http.StatusCreated, recorder.Code, recorder.Body.String())
	var payload struct {
		Testimonial testimonialResponse `json:"testimonial"`
	}
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &payload))
	harness.testimonials.WaitForNotifications()
	return payload.Testimonial
}

func decodeJSON(testingT *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	testingT.Helper()
	payload := map[string]any{}
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &payload), recorder.Body.String())
	return payload
}
