package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
	"github.com/MarkoPoloResearchLab/kudos/internal/storage"
	"github.com/MarkoPoloResearchLab/kudos/internal/testutil"
)

func TestSQLiteTestDatabaseIsIsolatedInMemory(t *testing.T) {
	first := testutil.NewSQLiteTestDatabase(t)
	second := testutil.NewSQLiteTestDatabase(t)

	configuration := first.Configuration()
	require.Equal(t, storage.DriverNameSQLite, configuration.DriverName)
	for _, parameter := range []string{"mode=memory", "cache=shared", "_foreign_keys=on"} {
		require.Contains(t, configuration.DataSourceName, parameter)
	}
	require.NotEqual(t, first.DataSourceName(), second.DataSourceName())
}

func TestOpenMigratedDatabaseIsReadyForSpaces(t *testing.T) {
	database := testutil.OpenMigratedDatabase(t)
	for _, tableName := range []string{"users", "spaces", "testimonials"} {
		require.True(t, database.Migrator().HasTable(tableName), tableName)
	}

	var missing model.Space
	require.Error(t, database.Where("slug = ?", "absent").First(&missing).Error)

	other := testutil.OpenMigratedDatabase(t)
	var count int64
	require.NoError(t, other.Model(&model.Space{}).Count(&count).Error)
	require.Zero(t, count)
}
