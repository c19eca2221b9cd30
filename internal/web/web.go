package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/pkg/footer"
)

const (
	CollectPagePath          = "/collect/:slug"
	SpaceEmbedPagePath       = "/embed/space/:slug"
	TestimonialEmbedPagePath = "/embed/testimonial/:id"
	HealthPath               = "/healthz"

	htmlContentType = "text/html; charset=utf-8"

	collectTemplateName          = "collect.tmpl"
	spaceEmbedTemplateName       = "space_embed.tmpl"
	testimonialEmbedTemplateName = "testimonial_embed.tmpl"

	defaultCollectTitle = "Share your experience"
	embedPageTitle      = "Testimonials"
	footerPrefixText    = "Collected with"
	footerBrandLabel    = "Kudos"
	logEventRenderPage  = "render_page_failed"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// PageConfig configures the server-rendered pages.
type PageConfig struct {
	// APIBaseURL is the origin pages call for JSON. Empty means same origin.
	APIBaseURL string
	// BrandURL is linked from the attribution footer when set.
	BrandURL string
}

// PageHandlers render the public collection form and the embed pages.
type PageHandlers struct {
	templates  *template.Template
	apiBaseURL string
	footerHTML template.HTML
	logger     *zap.Logger
}

type pageData struct {
	Title         string
	Slug          string
	TestimonialID string
	APIBaseURL    string
	MaxRating     int
	FooterHTML    template.HTML
}

// NewPageHandlers parses the page templates.
func NewPageHandlers(config PageConfig, logger *zap.Logger) (*PageHandlers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	templates, parseErr := template.ParseFS(templateFiles, "templates/*.tmpl")
	if parseErr != nil {
		return nil, parseErr
	}
	footerHTML, footerErr := footer.Render(footer.Config{
		ElementID:  "kudos-footer",
		PrefixText: footerPrefixText,
		BrandLabel: footerBrandLabel,
		BrandURL:   strings.TrimSpace(config.BrandURL),
	})
	if footerErr != nil {
		return nil, footerErr
	}
	return &PageHandlers{
		templates:  templates,
		apiBaseURL: strings.TrimRight(strings.TrimSpace(config.APIBaseURL), "/"),
		footerHTML: footerHTML,
		logger:     logger,
	}, nil
}

// CollectPage renders the public submission form for a space.
func (handlers *PageHandlers) CollectPage(context *gin.Context) {
	handlers.render(context, collectTemplateName, pageData{
		Title: defaultCollectTitle,
		Slug:  strings.TrimSpace(context.Param("slug")),
	})
}

// SpaceEmbedPage renders the page a space iframe points at.
func (handlers *PageHandlers) SpaceEmbedPage(context *gin.Context) {
	handlers.render(context, spaceEmbedTemplateName, pageData{
		Title: embedPageTitle,
		Slug:  strings.TrimSpace(context.Param("slug")),
	})
}

// TestimonialEmbedPage renders the page a single-testimonial iframe points at.
func (handlers *PageHandlers) TestimonialEmbedPage(context *gin.Context) {
	handlers.render(context, testimonialEmbedTemplateName, pageData{
		Title:         embedPageTitle,
		TestimonialID: strings.TrimSpace(context.Param("id")),
	})
}

// Health reports liveness.
func (handlers *PageHandlers) Health(context *gin.Context) {
	context.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (handlers *PageHandlers) render(context *gin.Context, templateName string, data pageData) {
	data.APIBaseURL = handlers.apiBaseURL
	data.MaxRating = model.MaxTestimonialRating
	data.FooterHTML = handlers.footerHTML

	var buffer bytes.Buffer
	if executeErr := handlers.templates.ExecuteTemplate(&buffer, templateName, data); executeErr != nil {
		handlers.logger.Error(logEventRenderPage, zap.String("template", templateName), zap.Error(executeErr))
		context.String(http.StatusInternalServerError, "page unavailable")
		return
	}
	context.Data(http.StatusOK, htmlContentType, buffer.Bytes())
}
