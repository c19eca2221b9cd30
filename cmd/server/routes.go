package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/api"
	"github.com/MarkoPoloResearchLab/kudos/internal/web"
)

const (
	apiRoutePrefix                 = "/api"
	apiRoutePreflight              = "/api/*path"
	apiRouteAuthUser               = "/auth/user"
	apiRouteMe                     = "/me"
	apiRouteSpaces                 = "/spaces"
	apiRouteSpaceByName            = "/spaces/:spaceName"
	apiRouteOwnedSpace             = "/spaces/:spaceName/owned"
	apiRouteSpaceByID              = "/spaces/:id"
	apiRouteSubmitTestimonial      = "/testimonials/:spaceSlug"
	apiRouteSpaceTestimonials      = "/testimonials/space/:slug"
	apiRouteTestimonialStats       = "/testimonials/stats"
	apiRouteTestimonialEvents      = "/testimonials/events"
	apiRouteTestimonialApprove     = "/testimonials/:id/approve"
	apiRouteTestimonialReject      = "/testimonials/:id/reject"
	apiRouteTestimonialFeature     = "/testimonials/:id/feature"
	apiRouteTestimonialByID        = "/testimonials/:id"
	apiRouteEmbedSpaceJSON         = "/embed/space/:slug"
	apiRouteEmbedTestimonialJSON   = "/embed/testimonial/:id"
	apiRouteEmbedTestimonialIframe = "/embed/testimonial/:id/iframe"
	apiRouteEmbedTestimonialScript = "/embed/testimonial/:id/script.js"
	apiRouteEmbedSpaceIframe       = "/embed/:spaceId"
	apiRouteEmbedSpaceScript       = "/embed/:spaceId/script.js"
	apiPathEmbedPrefix             = "/api/embed/"
	apiPathTestimonialsPrefix      = "/api/testimonials/"
	apiPathSpacesPrefix            = "/api/spaces/"
	corsOriginWildcard             = "*"
	corsHeaderAuthorization        = "Authorization"
	corsHeaderContentType          = "Content-Type"
	corsHeaderRequestMethod        = "Access-Control-Request-Method"
	corsMaxAge                     = 12 * time.Hour
)

var (
	corsPublicMethods        = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsAuthenticatedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsAllowedHeaders       = []string{corsHeaderAuthorization, corsHeaderContentType}
	corsExposedHeaders       = []string{corsHeaderContentType}
)

// routeDependencies carries the handlers a serve mode mounts. Backend
// handlers stay nil in web mode.
type routeDependencies struct {
	serveMode       ServeMode
	dashboardOrigin string
	pages           *web.PageHandlers
	authManager     *api.AuthManager
	identity        *api.IdentityHandlers
	spaces          *api.SpaceHandlers
	testimonials    *api.TestimonialHandlers
	embeds          *api.EmbedHandlers
}

func newRouter(logger *zap.Logger, dependencies routeDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(logger))
	router.GET(web.HealthPath, dependencies.pages.Health)

	if dependencies.serveMode.servesWeb() {
		registerFrontendRoutes(router, dependencies.pages)
	}
	if dependencies.serveMode.servesAPI() {
		registerBackendRoutes(router, dependencies)
	}
	return router
}

func registerFrontendRoutes(router *gin.Engine, pages *web.PageHandlers) {
	router.GET(web.CollectPagePath, pages.CollectPage)
	router.GET(web.SpaceEmbedPagePath, pages.SpaceEmbedPage)
	router.GET(web.TestimonialEmbedPagePath, pages.TestimonialEmbedPage)
}

func registerBackendRoutes(router *gin.Engine, dependencies routeDependencies) {
	publicCORS := cors.New(cors.Config{
		AllowOrigins:     []string{corsOriginWildcard},
		AllowMethods:     corsPublicMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	})
	authenticatedCORS := newAuthenticatedCORS(dependencies.dashboardOrigin)
	registerAPIPreflightRoutes(router, publicCORS, authenticatedCORS)

	publicGroup := router.Group(apiRoutePrefix)
	publicGroup.Use(publicCORS)
	publicGroup.POST(apiRouteAuthUser, dependencies.authManager.OptionalAuthentication(), dependencies.identity.SyncUser)
	publicGroup.GET(apiRouteSpaceByName, dependencies.spaces.GetPublicSpace)
	publicGroup.POST(apiRouteSubmitTestimonial, dependencies.testimonials.Submit)
	publicGroup.GET(apiRouteEmbedSpaceJSON, dependencies.embeds.SpaceJSON)
	publicGroup.GET(apiRouteEmbedTestimonialJSON, dependencies.embeds.TestimonialJSON)
	publicGroup.GET(apiRouteEmbedTestimonialIframe, dependencies.embeds.TestimonialIframe)
	publicGroup.GET(apiRouteEmbedTestimonialScript, dependencies.embeds.TestimonialScript)
	publicGroup.GET(apiRouteEmbedSpaceIframe, dependencies.embeds.SpaceIframe)
	publicGroup.GET(apiRouteEmbedSpaceScript, dependencies.embeds.SpaceScript)

	apiGroup := router.Group(apiRoutePrefix)
	apiGroup.Use(authenticatedCORS)
	apiGroup.Use(dependencies.authManager.RequireAuthenticatedJSON())
	apiGroup.GET(apiRouteMe, dependencies.identity.Me)
	apiGroup.POST(apiRouteSpaces, dependencies.spaces.CreateSpace)
	apiGroup.GET(apiRouteSpaces, dependencies.spaces.ListSpaces)
	apiGroup.GET(apiRouteOwnedSpace, dependencies.spaces.GetOwnedSpace)
	apiGroup.PUT(apiRouteSpaceByID, dependencies.spaces.UpdateSpace)
	apiGroup.DELETE(apiRouteSpaceByID, dependencies.spaces.DeleteSpace)
	apiGroup.GET(apiRouteSpaceTestimonials, dependencies.testimonials.ListForSpace)
	apiGroup.GET(apiRouteTestimonialStats, dependencies.testimonials.Stats)
	apiGroup.GET(apiRouteTestimonialEvents, dependencies.testimonials.StreamEvents)
	apiGroup.PATCH(apiRouteTestimonialApprove, dependencies.testimonials.Approve)
	apiGroup.PATCH(apiRouteTestimonialReject, dependencies.testimonials.Reject)
	apiGroup.PATCH(apiRouteTestimonialFeature, dependencies.testimonials.Feature)
	apiGroup.DELETE(apiRouteTestimonialByID, dependencies.testimonials.Delete)
}

// newAuthenticatedCORS allows the dashboard origin with credentials. Without a
// dashboard origin the authenticated routes are same-origin only.
func newAuthenticatedCORS(dashboardOrigin string) gin.HandlerFunc {
	if dashboardOrigin == "" {
		return func(context *gin.Context) {
			context.Next()
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     []string{dashboardOrigin},
		AllowMethods:     corsAuthenticatedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}

// registerAPIPreflightRoutes answers OPTIONS requests, which match no
// registered route, with the CORS policy of the route being requested.
func registerAPIPreflightRoutes(router *gin.Engine, publicCORS gin.HandlerFunc, authenticatedCORS gin.HandlerFunc) {
	router.OPTIONS(apiRoutePreflight, func(context *gin.Context) {
		if isPublicAPIRequest(context.Request.URL.Path, context.GetHeader(corsHeaderRequestMethod)) {
			publicCORS(context)
		} else {
			authenticatedCORS(context)
		}
		if !context.IsAborted() {
			context.AbortWithStatus(http.StatusNoContent)
		}
	})
}

func isPublicAPIRequest(path string, method string) bool {
	switch {
	case path == apiRoutePrefix+apiRouteAuthUser:
		return true
	case strings.HasPrefix(path, apiPathEmbedPrefix):
		return true
	case method == http.MethodPost && strings.HasPrefix(path, apiPathTestimonialsPrefix):
		return !strings.Contains(strings.TrimPrefix(path, apiPathTestimonialsPrefix), "/")
	case method == http.MethodGet && strings.HasPrefix(path, apiPathSpacesPrefix):
		return !strings.Contains(strings.TrimPrefix(path, apiPathSpacesPrefix), "/")
	default:
		return false
	}
}
