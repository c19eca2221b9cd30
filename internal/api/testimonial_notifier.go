package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

const notificationTimeout = 30 * time.Second

// TestimonialNotifier tells a space owner about a new submission.
type TestimonialNotifier interface {
	NotifyTestimonial(ctx context.Context, owner model.User, space model.Space, testimonial model.Testimonial) error
}

type noopTestimonialNotifier struct{}

func (noopTestimonialNotifier) NotifyTestimonial(context.Context, model.User, model.Space, model.Testimonial) error {
	return nil
}

func resolveTestimonialNotifier(notifier TestimonialNotifier) TestimonialNotifier {
	if notifier == nil {
		return noopTestimonialNotifier{}
	}
	return notifier
}

// ownerLookup finds the local record of a space owner.
type ownerLookup interface {
	Find(ctx context.Context, userID string) (model.User, error)
}

// notifyOwner runs outside the request so a slow mail server never delays
// the submitter. Owners without an email address are skipped.
func notifyOwner(logger *zap.Logger, owners ownerLookup, notifier TestimonialNotifier, space model.Space, testimonial model.Testimonial, done func()) {
	defer func() {
		if done != nil {
			done()
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
	defer cancel()

	owner, findErr := owners.Find(ctx, space.UserID)
	if findErr != nil {
		logger.Warn("testimonial_notification_owner_lookup_failed", zap.Error(findErr), zap.String("space_id", space.ID))
		return
	}
	if owner.Email == "" {
		return
	}
	if notifyErr := notifier.NotifyTestimonial(ctx, owner, space, testimonial); notifyErr != nil {
		logger.Warn("testimonial_notification_failed", zap.Error(notifyErr), zap.String("space_id", space.ID), zap.String("testimonial_id", testimonial.ID))
	}
}
