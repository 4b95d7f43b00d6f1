package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registrar/storage/database"
	testutil "github.com/trezcool/registrar/tests"
)

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig(t)
	require.NoError(t, database.CreateIfNotExist(conf))
	db := testutil.OpenDB(t, conf)

	tableCount := func() int {
		var n int
		err := db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('offerings', 'enrollments')`)
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, 2, tableCount())

	require.NoError(t, database.RunMigrations(ctx, db.DB, conf.Database.Engine, "down"))
	assert.Equal(t, 0, tableCount())

	require.NoError(t, database.Migrate(ctx, db.DB, conf.Database.Engine))
	assert.Equal(t, 2, tableCount())

	err := database.RunMigrations(ctx, db.DB, conf.Database.Engine, "nope")
	assert.Error(t, err)
}

func TestOpen_unsupportedEngine(t *testing.T) {
	conf := testutil.NewConfig(t)
	conf.Database.Engine = "mysql"
	_, err := database.Open(conf)
	assert.Error(t, err)
}
