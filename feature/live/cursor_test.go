package live

import (
	"testing"

	"shapesync/core/database"
	"shapesync/core/shape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, shape.Registry()))
	return db
}

func TestCursorGetUnknownShapeIsZero(t *testing.T) {
	store := NewCursorStore(testDB(t))

	pos, err := store.Get("lists")
	require.NoError(t, err)
	assert.EqualValues(t, 0, pos)
}

func TestCursorAdvanceAndGet(t *testing.T) {
	db := testDB(t)
	store := NewCursorStore(db)

	require.NoError(t, store.Advance(db, "lists", 7))

	pos, err := store.Get("lists")
	require.NoError(t, err)
	assert.EqualValues(t, 7, pos)
}

func TestCursorNeverRegresses(t *testing.T) {
	db := testDB(t)
	store := NewCursorStore(db)

	require.NoError(t, store.Advance(db, "lists", 10))
	require.NoError(t, store.Advance(db, "lists", 5))

	pos, err := store.Get("lists")
	require.NoError(t, err)
	assert.EqualValues(t, 10, pos)

	require.NoError(t, store.Advance(db, "lists", 12))
	pos, err = store.Get("lists")
	require.NoError(t, err)
	assert.EqualValues(t, 12, pos)
}

func TestCursorsAreIndependentPerShape(t *testing.T) {
	db := testDB(t)
	store := NewCursorStore(db)

	require.NoError(t, store.Advance(db, "lists", 3))
	require.NoError(t, store.Advance(db, "todos", 9))

	pos, err := store.Get("lists")
	require.NoError(t, err)
	assert.EqualValues(t, 3, pos)

	pos, err = store.Get("todos")
	require.NoError(t, err)
	assert.EqualValues(t, 9, pos)
}
