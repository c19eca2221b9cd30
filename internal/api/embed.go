package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"net/http"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
)

const (
	embedKindSpace       = "space"
	embedKindTestimonial = "testimonial"

	contentTypeJavaScript = "application/javascript; charset=utf-8"
	contentTypeHTML       = "text/html; charset=utf-8"

	spaceIframeHeight       = 600
	testimonialIframeHeight = 320
)

//go:embed assets/embed.js
var embedJavaScriptSource string

var embedJavaScriptTemplate = texttemplate.Must(texttemplate.New("embed.js").Parse(embedJavaScriptSource))

var embedIframeTemplate = htmltemplate.Must(htmltemplate.New("embed-iframe").Parse(
	`<iframe src="{{.Source}}" title="{{.Title}}" width="100%" height="{{.Height}}" style="border:0;" loading="lazy"></iframe>`,
))

// EmbedHandlers expose approved testimonials to third-party pages.
type EmbedHandlers struct {
	publisher     *service.EmbedPublisher
	publicBaseURL string
	logger        *zap.Logger
}

// NewEmbedHandlers constructs EmbedHandlers. publicBaseURL is the origin the
// iframe fragments point at.
func NewEmbedHandlers(publisher *service.EmbedPublisher, publicBaseURL string, logger *zap.Logger) *EmbedHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedHandlers{
		publisher:     publisher,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		logger:        logger,
	}
}

type embedScriptPayload struct {
	Kind         string                      `json:"kind"`
	Title        string                      `json:"title,omitempty"`
	Testimonials []service.PublicTestimonial `json:"testimonials"`
}

type embedIframeData struct {
	Source string
	Title  string
	Height int
}

// SpaceJSON returns the public space and its approved testimonials.
func (handlers *EmbedHandlers) SpaceJSON(context *gin.Context) {
	embed, embedErr := handlers.publisher.ForSpaceSlug(context.Request.Context(), context.Param("slug"))
	if embedErr != nil {
		writeServiceError(context, handlers.logger, "embed_space_json", embedErr)
		return
	}
	context.JSON(http.StatusOK, embed)
}

// TestimonialJSON returns one approved testimonial.
func (handlers *EmbedHandlers) TestimonialJSON(context *gin.Context) {
	testimonial, embedErr := handlers.publisher.ForTestimonial(context.Request.Context(), context.Param("id"))
	if embedErr != nil {
		writeServiceError(context, handlers.logger, "embed_testimonial_json", embedErr)
		return
	}
	context.JSON(http.StatusOK, gin.H{jsonKeyTestimonial: testimonial})
}

// SpaceIframe returns an iframe fragment pointing at the space embed page.
func (handlers *EmbedHandlers) SpaceIframe(context *gin.Context) {
	embed, embedErr := handlers.publisher.ForSpaceID(context.Request.Context(), context.Param("spaceId"))
	if embedErr != nil {
		writeServiceError(context, handlers.logger, "embed_space_iframe", embedErr)
		return
	}
	handlers.writeIframe(context, embedIframeData{
		Source: handlers.pageURL("embed", "space", embed.Space.Slug),
		Title:  embed.Space.Name,
		Height: spaceIframeHeight,
	})
}

// TestimonialIframe returns an iframe fragment pointing at the single testimonial page.
func (handlers *EmbedHandlers) TestimonialIframe(context *gin.Context) {
	testimonial, embedErr := handlers.publisher.ForTestimonial(context.Request.Context(), context.Param("id"))
	if embedErr != nil {
		writeServiceError(context, handlers.logger, "embed_testimonial_iframe", embedErr)
		return
	}
	handlers.writeIframe(context, embedIframeData{
		Source: handlers.pageURL("embed", "testimonial", testimonial.ID),
		Title:  testimonial.AuthorName,
		Height: testimonialIframeHeight,
	})
}

// SpaceScript returns a self-executing script rendering the space's approved testimonials.
func (handlers *EmbedHandlers) SpaceScript(context *gin.Context) {
	embed, embedErr := handlers.publisher.ForSpaceID(context.Request.Context(), context.Param("spaceId"))
	if embedErr != nil {
		handlers.writeScriptError(context, "embed_space_script", embedErr)
		return
	}
	handlers.writeScript(context, "embed_space_script", embedScriptPayload{
		Kind:         embedKindSpace,
		Title:        embed.Space.HeaderTitle,
		Testimonials: embed.Testimonials,
	})
}

// TestimonialScript returns a self-executing script rendering one approved testimonial.
func (handlers *EmbedHandlers) TestimonialScript(context *gin.Context) {
	testimonial, embedErr := handlers.publisher.ForTestimonial(context.Request.Context(), context.Param("id"))
	if embedErr != nil {
		handlers.writeScriptError(context, "embed_testimonial_script", embedErr)
		return
	}
	handlers.writeScript(context, "embed_testimonial_script", embedScriptPayload{
		Kind:         embedKindTestimonial,
		Testimonials: []service.PublicTestimonial{testimonial},
	})
}

func (handlers *EmbedHandlers) pageURL(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return handlers.publicBaseURL + "/" + strings.Join(escaped, "/")
}

func (handlers *EmbedHandlers) writeIframe(context *gin.Context, data embedIframeData) {
	var buffer bytes.Buffer
	if executeErr := embedIframeTemplate.Execute(&buffer, data); executeErr != nil {
		handlers.logger.Error("render_embed_iframe", zap.Error(executeErr))
		writeError(context, http.StatusInternalServerError, errorValueInternal, messageInternalError)
		return
	}
	context.Data(http.StatusOK, contentTypeHTML, buffer.Bytes())
}

func (handlers *EmbedHandlers) writeScript(context *gin.Context, event string, payload embedScriptPayload) {
	script, renderErr := renderEmbedScript(payload)
	if renderErr != nil {
		handlers.logger.Error(event, zap.Error(renderErr))
		context.Data(http.StatusInternalServerError, contentTypeJavaScript, []byte("/* render error */"))
		return
	}
	context.Header("Cache-Control", "public, max-age=60")
	context.Data(http.StatusOK, contentTypeJavaScript, []byte(script))
}

func (handlers *EmbedHandlers) writeScriptError(context *gin.Context, event string, err error) {
	status, code := classifyServiceError(err)
	if status == http.StatusInternalServerError {
		handlers.logger.Error(event, zap.Error(err))
	}
	context.Data(status, contentTypeJavaScript, []byte(fmt.Sprintf("/* %s */", code)))
}

// renderEmbedScript inlines the payload as JSON. encoding/json escapes <, >
// and & so the data cannot close the surrounding script element.
func renderEmbedScript(payload embedScriptPayload) (string, error) {
	if payload.Testimonials == nil {
		payload.Testimonials = []service.PublicTestimonial{}
	}
	serialized, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return "", fmt.Errorf("marshal embed payload: %w", marshalErr)
	}
	var buffer bytes.Buffer
	executeErr := embedJavaScriptTemplate.Execute(&buffer, map[string]any{
		"Payload":   string(serialized),
		"MaxRating": model.MaxTestimonialRating,
	})
	if executeErr != nil {
		return "", fmt.Errorf("render embed template: %w", executeErr)
	}
	return buffer.String(), nil
}
