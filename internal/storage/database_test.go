package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/storage"
	"github.com/MarkoPoloResearchLab/kudos/internal/testutil"
)

const (
	testOwnerUserID                  = "owner-123"
	testSpaceName                    = "Acme Feedback"
	testAuthorName                   = "Jane"
	testTestimonialContent           = "Great!"
	testUnsupportedDriverName        = "unsupported-driver"
	testUnsupportedDriverDescription = "unsupported driver"
	testMissingDriverDescription     = "missing driver"
	testMissingDataSourceDescription = "missing data source"
)

func TestOpenDatabaseWithSQLiteConfiguration(t *testing.T) {
	database := testutil.OpenMigratedDatabase(t)

	space, spaceErr := model.NewSpace(model.SpaceInput{
		OwnerID:   testOwnerUserID,
		Name:      testSpaceName,
		Questions: []string{"What did you like?"},
	})
	require.NoError(t, spaceErr)
	require.NoError(t, database.Create(&space).Error)

	rating := 5
	testimonial, testimonialErr := model.NewTestimonial(model.TestimonialInput{
		SpaceID:    space.ID,
		AuthorName: testAuthorName,
		Content:    testTestimonialContent,
		Rating:     &rating,
		Answers:    []model.Answer{{Question: "What did you like?", Answer: "Everything"}},
		SocialLinks: model.SocialLinks{
			Twitter: "https://twitter.com/jane",
		},
	})
	require.NoError(t, testimonialErr)
	require.NoError(t, database.Create(&testimonial).Error)

	var fetchedSpace model.Space
	require.NoError(t, database.First(&fetchedSpace, "slug = ?", "acme-feedback").Error)
	require.Equal(t, space.ID, fetchedSpace.ID)
	require.Equal(t, []string{"What did you like?"}, fetchedSpace.Questions)
	require.True(t, fetchedSpace.StarRatings)

	var fetchedTestimonial model.Testimonial
	require.NoError(t, database.First(&fetchedTestimonial, "id = ?", testimonial.ID).Error)
	require.Equal(t, testAuthorName, fetchedTestimonial.Author.Name)
	require.Equal(t, model.TestimonialStatusPending, fetchedTestimonial.Status)
	require.NotNil(t, fetchedTestimonial.Rating)
	require.Equal(t, rating, *fetchedTestimonial.Rating)
	require.Equal(t, "Everything", fetchedTestimonial.Answers[0].Answer)
	require.Equal(t, "https://twitter.com/jane", fetchedTestimonial.SocialLinks.Twitter)
	require.False(t, fetchedTestimonial.Featured)
}

func TestAutoMigrateIsRepeatable(t *testing.T) {
	database := testutil.OpenMigratedDatabase(t)
	require.NoError(t, storage.AutoMigrate(database))
}

func TestSpaceSlugUniqueIndexReportsDuplicateKey(t *testing.T) {
	database := testutil.OpenMigratedDatabase(t)

	firstSpace, firstErr := model.NewSpace(model.SpaceInput{OwnerID: testOwnerUserID, Name: "Demo"})
	require.NoError(t, firstErr)
	require.NoError(t, database.Create(&firstSpace).Error)

	secondSpace, secondErr := model.NewSpace(model.SpaceInput{OwnerID: "someone-else", Name: "demo"})
	require.NoError(t, secondErr)
	duplicateErr := database.Create(&secondSpace).Error
	require.Error(t, duplicateErr)
	require.True(t, storage.IsDuplicateKey(duplicateErr))
}

func TestUserIDUniqueIndexReportsDuplicateKey(t *testing.T) {
	database := testutil.OpenMigratedDatabase(t)

	firstUser, firstErr := model.NewUser(testOwnerUserID, "")
	require.NoError(t, firstErr)
	require.NoError(t, database.Create(&firstUser).Error)

	secondUser, secondErr := model.NewUser(testOwnerUserID, "")
	require.NoError(t, secondErr)
	require.True(t, storage.IsDuplicateKey(database.Create(&secondUser).Error))
}

func TestOpenDatabaseValidation(t *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(t)

	testCases := []struct {
		name              string
		configuration     storage.Config
		expectedRootError error
	}{
		{
			name: testMissingDriverDescription,
			configuration: storage.Config{
				DriverName:     "",
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrMissingDatabaseDriverName,
		},
		{
			name: testUnsupportedDriverDescription,
			configuration: storage.Config{
				DriverName:     testUnsupportedDriverName,
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrUnsupportedDatabaseDriver,
		},
		{
			name: testMissingDataSourceDescription,
			configuration: storage.Config{
				DriverName:     storage.DriverNameSQLite,
				DataSourceName: "",
			},
			expectedRootError: storage.ErrMissingDataSourceName,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			_, openErr := storage.OpenDatabase(testCase.configuration)
			require.Error(testingT, openErr)
			require.True(testingT, errors.Is(openErr, testCase.expectedRootError))
		})
	}
}
