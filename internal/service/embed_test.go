package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
)

func TestEmbedNeverExposesUnapprovedTestimonials(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()
	space := fixture.createSpace(t, testOwnerID, "Acme")

	pending := fixture.submit(t, space.Slug, "pending")
	rejected := fixture.submit(t, space.Slug, "rejected")
	approved := fixture.submit(t, space.Slug, "approved")
	_, rejectErr := fixture.moderation.Reject(ctx, rejected.ID, testOwnerID)
	require.NoError(t, rejectErr)
	_, approveErr := fixture.moderation.Approve(ctx, approved.ID, testOwnerID)
	require.NoError(t, approveErr)

	bySlug, slugErr := fixture.embeds.ForSpaceSlug(ctx, space.Slug)
	require.NoError(t, slugErr)
	require.Len(t, bySlug.Testimonials, 1)
	require.Equal(t, approved.ID, bySlug.Testimonials[0].ID)
	require.Equal(t, space.Slug, bySlug.Space.Slug)

	byID, idErr := fixture.embeds.ForSpaceID(ctx, space.ID)
	require.NoError(t, idErr)
	require.Equal(t, bySlug.Testimonials, byID.Testimonials)

	for _, hiddenID := range []string{pending.ID, rejected.ID} {
		_, hiddenErr := fixture.embeds.ForTestimonial(ctx, hiddenID)
		require.ErrorIs(t, hiddenErr, service.ErrNotFound)
	}

	single, singleErr := fixture.embeds.ForTestimonial(ctx, approved.ID)
	require.NoError(t, singleErr)
	require.Equal(t, approved.ID, single.ID)
}

func TestEmbedOrdersFeaturedFirstThenNewest(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	space := fixture.createSpace(t, testOwnerID, "Acme")

	oldest := fixture.submit(t, space.Slug, "oldest")
	middle := fixture.submit(t, space.Slug, "middle")
	newest := fixture.submit(t, space.Slug, "newest")
	fixture.setCreatedAt(t, &oldest, now.Add(-2*time.Hour))
	fixture.setCreatedAt(t, &middle, now.Add(-time.Hour))
	fixture.setCreatedAt(t, &newest, now)
	for _, testimonial := range []model.Testimonial{oldest, middle, newest} {
		_, approveErr := fixture.moderation.Approve(ctx, testimonial.ID, testOwnerID)
		require.NoError(t, approveErr)
	}
	_, featureErr := fixture.moderation.SetFeatured(ctx, oldest.ID, testOwnerID, true)
	require.NoError(t, featureErr)

	embed, err := fixture.embeds.ForSpaceSlug(ctx, space.Slug)
	require.NoError(t, err)
	require.Len(t, embed.Testimonials, 3)
	require.Equal(t, oldest.ID, embed.Testimonials[0].ID)
	require.Equal(t, newest.ID, embed.Testimonials[1].ID)
	require.Equal(t, middle.ID, embed.Testimonials[2].ID)
}

func TestPublicTestimonialOmitsAuthorEmail(t *testing.T) {
	publicTestimonial := service.NewPublicTestimonial(model.Testimonial{
		ID:      "t-1",
		Author:  model.TestimonialAuthor{Name: testAuthorName, Email: "jane@example.com", Company: "Acme"},
		Content: testContent,
	})

	encoded, err := json.Marshal(publicTestimonial)
	require.NoError(t, err)
	require.NotContains(t, string(encoded), "jane@example.com")
	require.Contains(t, string(encoded), `"authorName":"Jane"`)
	require.Contains(t, string(encoded), `"answers":[]`)
}

func TestEmbedForUnknownSpaceIsNotFound(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.embeds.ForSpaceSlug(context.Background(), "missing")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestEmbedHidesTestimonialOfDeletedSpace(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()
	space := fixture.createSpace(t, testOwnerID, "Acme")
	approved := fixture.submit(t, space.Slug, "approved")
	_, approveErr := fixture.moderation.Approve(ctx, approved.ID, testOwnerID)
	require.NoError(t, approveErr)

	require.NoError(t, fixture.database.Delete(&model.Space{}, "id = ?", space.ID).Error)

	_, err := fixture.embeds.ForTestimonial(ctx, approved.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
}
