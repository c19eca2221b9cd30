package notifications

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

const (
	testOwnerEmail = "owner@example.com"
	testSender     = "noreply@kudos.example"
)

func newTestNotifier(t *testing.T) (*EmailNotifier, *[]*mail.Msg) {
	t.Helper()
	notifier, err := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", From: testSender, DashboardURL: "https://app.kudos.example"}, nil)
	require.NoError(t, err)
	sent := []*mail.Msg{}
	notifier.send = func(_ context.Context, message *mail.Msg) error {
		sent = append(sent, message)
		return nil
	}
	return notifier, &sent
}

func TestNewEmailNotifierValidatesConfig(t *testing.T) {
	_, err := NewEmailNotifier(SMTPConfig{From: testSender}, nil)
	require.ErrorIs(t, err, ErrMissingSMTPHost)

	_, err = NewEmailNotifier(SMTPConfig{Host: "smtp.example.com"}, nil)
	require.ErrorIs(t, err, ErrMissingSMTPSender)

	notifier, err := NewEmailNotifier(SMTPConfig{Host: " smtp.example.com ", From: testSender}, nil)
	require.NoError(t, err)
	require.Equal(t, defaultSMTPPort, notifier.config.Port)
	require.Equal(t, defaultFromName, notifier.config.FromName)
	require.Equal(t, "smtp.example.com", notifier.config.Host)
}

func TestNotifyTestimonialBuildsMessage(t *testing.T) {
	notifier, sent := newTestNotifier(t)
	rating := 4
	space := model.Space{ID: "space-1", Name: "Demo"}
	testimonial := model.Testimonial{
		ID:      "testimonial-1",
		Author:  model.TestimonialAuthor{Name: "Jane"},
		Content: "Great product",
		Rating:  &rating,
	}

	err := notifier.NotifyTestimonial(context.Background(), model.User{UserID: "user_1", Email: testOwnerEmail}, space, testimonial)
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	message := (*sent)[0]
	require.Equal(t, []string{"<" + testOwnerEmail + ">"}, message.GetToString())
	require.Equal(t, []string{"New testimonial for Demo"}, message.GetGenHeader(mail.HeaderSubject))

	var raw bytes.Buffer
	_, writeErr := message.WriteTo(&raw)
	require.NoError(t, writeErr)
	rendered := raw.String()
	require.Contains(t, rendered, "Great product")
	require.Contains(t, rendered, "Rating: 4 / 5")
}

func TestNotifyTestimonialRequiresOwnerEmail(t *testing.T) {
	notifier, sent := newTestNotifier(t)
	err := notifier.NotifyTestimonial(context.Background(), model.User{UserID: "user_1"}, model.Space{Name: "Demo"}, model.Testimonial{})
	require.ErrorIs(t, err, ErrMissingRecipient)
	require.Empty(t, *sent)
}

func TestNotifyTestimonialWrapsSendFailure(t *testing.T) {
	notifier, _ := newTestNotifier(t)
	sendErr := errors.New("relay down")
	notifier.send = func(context.Context, *mail.Msg) error { return sendErr }

	err := notifier.NotifyTestimonial(context.Background(), model.User{Email: testOwnerEmail}, model.Space{Name: "Demo"}, model.Testimonial{Content: "Nice"})
	require.ErrorIs(t, err, sendErr)
}

func TestPreviewTruncatesLongContent(t *testing.T) {
	require.Equal(t, "short", preview("  short "))
	long := strings.Repeat("a", contentPreviewSize+10)
	require.Equal(t, contentPreviewSize+1, len([]rune(preview(long))))
}
