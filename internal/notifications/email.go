package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

const (
	defaultSMTPPort    = 587
	defaultSendTimeout = 10 * time.Second
	defaultFromName    = "Kudos"
	contentPreviewSize = 500
)

var (
	ErrMissingSMTPHost   = errors.New("notifications: smtp host is required")
	ErrMissingSMTPSender = errors.New("notifications: sender address is required")
	ErrMissingRecipient  = errors.New("notifications: owner has no email address")
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// DashboardURL is linked from the message so the owner can moderate.
	DashboardURL string
	Timeout      time.Duration
}

type messageSender func(ctx context.Context, message *mail.Msg) error

// EmailNotifier emails space owners when a testimonial arrives.
type EmailNotifier struct {
	config SMTPConfig
	logger *zap.Logger
	send   messageSender
}

var testimonialEmailTemplate = template.Must(template.New("testimonial-email").Parse(`<html>
  <body>
    <p>{{.AuthorName}} left a new testimonial for <strong>{{.SpaceName}}</strong>.</p>
    {{if .Rating}}<p>Rating: {{.Rating}} / {{.MaxRating}}</p>{{end}}
    <blockquote>{{.Content}}</blockquote>
    <p>It is waiting for your review.{{if .DashboardURL}} <a href="{{.DashboardURL}}">Open the dashboard</a>{{end}}</p>
  </body>
</html>`))

type testimonialEmailData struct {
	AuthorName   string
	SpaceName    string
	Rating       int
	MaxRating    int
	Content      string
	DashboardURL string
}

// NewEmailNotifier validates the relay settings.
func NewEmailNotifier(config SMTPConfig, logger *zap.Logger) (*EmailNotifier, error) {
	config.Host = strings.TrimSpace(config.Host)
	config.From = strings.TrimSpace(config.From)
	if config.Host == "" {
		return nil, ErrMissingSMTPHost
	}
	if config.From == "" {
		return nil, ErrMissingSMTPSender
	}
	if config.Port <= 0 {
		config.Port = defaultSMTPPort
	}
	if strings.TrimSpace(config.FromName) == "" {
		config.FromName = defaultFromName
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := &EmailNotifier{config: config, logger: logger}
	notifier.send = notifier.dialAndSend
	return notifier, nil
}

// NotifyTestimonial emails the owner about a pending testimonial.
func (notifier *EmailNotifier) NotifyTestimonial(ctx context.Context, owner model.User, space model.Space, testimonial model.Testimonial) error {
	recipient := strings.TrimSpace(owner.Email)
	if recipient == "" {
		return ErrMissingRecipient
	}
	message, buildErr := notifier.buildMessage(recipient, space, testimonial)
	if buildErr != nil {
		return buildErr
	}
	if sendErr := notifier.send(ctx, message); sendErr != nil {
		return fmt.Errorf("send testimonial email: %w", sendErr)
	}
	notifier.logger.Info("testimonial_notification_sent", zap.String("space_id", space.ID), zap.String("testimonial_id", testimonial.ID))
	return nil
}

func (notifier *EmailNotifier) buildMessage(recipient string, space model.Space, testimonial model.Testimonial) (*mail.Msg, error) {
	message := mail.NewMsg(mail.WithNoDefaultUserAgent())
	if err := message.FromFormat(notifier.config.FromName, notifier.config.From); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := message.To(recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	message.Subject(fmt.Sprintf("New testimonial for %s", space.Name))

	data := testimonialEmailData{
		AuthorName:   testimonial.Author.Name,
		SpaceName:    space.Name,
		MaxRating:    model.MaxTestimonialRating,
		Content:      preview(testimonial.Content),
		DashboardURL: strings.TrimSpace(notifier.config.DashboardURL),
	}
	if testimonial.Rating != nil {
		data.Rating = *testimonial.Rating
	}

	var plainBody strings.Builder
	_, _ = fmt.Fprintf(&plainBody, "%s left a new testimonial for %s.\n\n", data.AuthorName, data.SpaceName)
	if data.Rating > 0 {
		_, _ = fmt.Fprintf(&plainBody, "Rating: %d / %d\n\n", data.Rating, data.MaxRating)
	}
	_, _ = fmt.Fprintf(&plainBody, "%s\n\nIt is waiting for your review.\n", data.Content)
	if data.DashboardURL != "" {
		_, _ = fmt.Fprintf(&plainBody, "%s\n", data.DashboardURL)
	}
	message.SetBodyString(mail.TypeTextPlain, plainBody.String())

	var htmlBody bytes.Buffer
	if err := testimonialEmailTemplate.Execute(&htmlBody, data); err != nil {
		return nil, fmt.Errorf("render testimonial email: %w", err)
	}
	message.AddAlternativeString(mail.TypeTextHTML, htmlBody.String())
	return message, nil
}

func (notifier *EmailNotifier) dialAndSend(ctx context.Context, message *mail.Msg) error {
	options := []mail.Option{
		mail.WithPort(notifier.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(notifier.config.Timeout),
	}
	if notifier.config.Username != "" && notifier.config.Password != "" {
		options = append(options,
			mail.WithUsername(notifier.config.Username),
			mail.WithPassword(notifier.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}
	client, clientErr := mail.NewClient(notifier.config.Host, options...)
	if clientErr != nil {
		return fmt.Errorf("create smtp client: %w", clientErr)
	}
	return client.DialAndSendWithContext(ctx, message)
}

func preview(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= contentPreviewSize {
		return string(runes)
	}
	return string(runes[:contentPreviewSize]) + "…"
}
