package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
	"github.com/MarkoPoloResearchLab/kudos/internal/testutil"
)

const (
	testOwnerID    = "user_owner"
	testStrangerID = "user_stranger"
	testAuthorName = "Jane"
	testContent    = "Great!"
)

type serviceFixture struct {
	database   *gorm.DB
	identity   *service.IdentityService
	spaces     *service.SpaceRegistry
	intake     *service.Intake
	moderation *service.Moderation
	embeds     *service.EmbedPublisher
}

func newServiceFixture(testingT *testing.T, options ...service.ModerationOption) serviceFixture {
	testingT.Helper()
	database := testutil.OpenMigratedDatabase(testingT)
	return serviceFixture{
		database:   database,
		identity:   service.NewIdentityService(database, nil),
		spaces:     service.NewSpaceRegistry(database, nil),
		intake:     service.NewIntake(database, nil),
		moderation: service.NewModeration(database, nil, options...),
		embeds:     service.NewEmbedPublisher(database, nil),
	}
}

func (fixture serviceFixture) createSpace(testingT *testing.T, ownerID string, name string) model.Space {
	testingT.Helper()
	starRatings := false
	space, err := fixture.spaces.Create(context.Background(), ownerID, model.SpaceInput{Name: name, StarRatings: &starRatings})
	require.NoError(testingT, err)
	return space
}

func (fixture serviceFixture) submit(testingT *testing.T, slug string, content string) model.Testimonial {
	testingT.Helper()
	testimonial, _, err := fixture.intake.Submit(context.Background(), slug, service.Submission{
		AuthorName:  testAuthorName,
		AuthorEmail: "jane@example.com",
		Content:     content,
	})
	require.NoError(testingT, err)
	return testimonial
}

func (fixture serviceFixture) setCreatedAt(testingT *testing.T, value any, createdAt time.Time) {
	testingT.Helper()
	require.NoError(testingT, fixture.database.Model(value).UpdateColumn("created_at", createdAt).Error)
}
