package database

import (
	"testing"

	"shapesync/core/shape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("SQLite in-memory", func(t *testing.T) {
		db, err := Connect(Config{Driver: "sqlite", Path: ":memory:"})
		require.NoError(t, err)
		assert.NotNil(t, db)
	})

	t.Run("Unknown driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "postgres"})
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Invalid MySQL connection", func(t *testing.T) {
		cfg := Config{
			Driver:         "mysql",
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "shapesync",
			TimeoutSeconds: 1,
		}

		// Connect should fail (timeout or refused).
		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestMigrate_CreatesMirroredAndBookkeepingTables(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	shapes := shape.Registry()
	require.NoError(t, Migrate(db, shapes))

	for _, s := range shapes {
		assert.True(t, HasTable(db, s.Name), "mirrored table %s must exist", s.Name)
	}
	assert.True(t, HasTable(db, "shape_cursors"))
	assert.True(t, HasTable(db, "sync_states"))
	assert.True(t, HasTable(db, "outbox_mutations"))

	// Migrate is idempotent.
	require.NoError(t, Migrate(db, shapes))
}

func TestEnsureIndexes_Idempotent(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	shapes := shape.Registry()
	require.NoError(t, Migrate(db, shapes))

	require.NoError(t, EnsureIndexes(db, shapes))
	require.NoError(t, EnsureIndexes(db, shapes))
}
