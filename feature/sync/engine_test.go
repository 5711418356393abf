package sync

import (
	"context"
	stdsync "sync"
	"testing"

	"shapesync/core/database"
	"shapesync/core/remote"
	"shapesync/core/remote/mocks"
	"shapesync/core/shape"
	"shapesync/core/status"
	"shapesync/core/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	listA = "11111111-1111-1111-1111-111111111111"
	listB = "22222222-2222-2222-2222-222222222222"
	goalA = "33333333-3333-3333-3333-333333333333"
	todoA = "44444444-4444-4444-4444-444444444444"
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

func testEngine(t *testing.T, db *gorm.DB, client remote.Client) *Engine {
	t.Helper()

	cfg := remote.Config{Enabled: true, Attempts: 1, BackoffMillis: 1}
	tokens := token.NewProvider("", "", "test-token", 0)
	pub := status.NewPublisher(db, zap.NewNop())
	return NewEngine(db, client, tokens, pub, nil, shape.Registry(), cfg, zap.NewNop())
}

func mustShape(t *testing.T, name string) shape.Shape {
	t.Helper()
	s, ok := shape.ByName(shape.Registry(), name)
	require.True(t, ok)
	return s
}

func seedList(t *testing.T, db *gorm.DB, id, name string) {
	t.Helper()
	err := db.Table("lists").Create(map[string]any{
		"id": id, "name": name, "color": "red", "position": 1, "created_at": "2026-01-01T00:00:00Z",
	}).Error
	require.NoError(t, err)
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	n, err := database.RowCount(db, table)
	require.NoError(t, err)
	return n
}

func TestDoFullTableSyncInsertsSnapshot(t *testing.T) {
	db := testDB(t)
	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "lists", mustShape(t, "lists").ColumnNames()).Return([]map[string]any{
		{"id": listA, "name": "inbox", "color": "blue", "position": float64(1), "created_at": "2026-01-01T00:00:00Z"},
		{"id": listB, "name": "work", "color": "green", "position": float64(2), "created_at": "2026-01-02T00:00:00Z"},
	}, nil)

	engine := testEngine(t, db, client)
	require.NoError(t, engine.DoFullTableSync(context.Background(), mustShape(t, "lists")))

	assert.EqualValues(t, 2, countRows(t, db, "lists"))

	var rows []map[string]any
	require.NoError(t, db.Table("lists").Where("id = ?", listA).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "inbox", rows[0]["name"])
}

func TestDoFullTableSyncDeletesOrphans(t *testing.T) {
	db := testDB(t)
	seedList(t, db, listA, "keep")
	seedList(t, db, listB, "orphan")

	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "lists", mock.Anything).Return([]map[string]any{
		{"id": listA, "name": "keep"},
	}, nil)

	engine := testEngine(t, db, client)
	require.NoError(t, engine.DoFullTableSync(context.Background(), mustShape(t, "lists")))

	ids, err := database.TableIDs(db, "lists")
	require.NoError(t, err)
	assert.Equal(t, []string{listA}, ids)
}

func TestDoFullTableSyncUpsertOverwrites(t *testing.T) {
	db := testDB(t)
	seedList(t, db, listA, "stale name")

	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "lists", mock.Anything).Return([]map[string]any{
		{"id": listA, "name": "fresh name", "color": "blue"},
	}, nil)

	engine := testEngine(t, db, client)
	require.NoError(t, engine.DoFullTableSync(context.Background(), mustShape(t, "lists")))

	assert.EqualValues(t, 1, countRows(t, db, "lists"))

	var rows []map[string]any
	require.NoError(t, db.Table("lists").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "fresh name", rows[0]["name"])
}

func TestDoFullTableSyncSanitizesForeignKeys(t *testing.T) {
	db := testDB(t)
	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "todos", mock.Anything).Return([]map[string]any{
		{"id": todoA, "list_id": "not-a-uuid", "goal_id": goalA, "title": "t1"},
	}, nil)

	engine := testEngine(t, db, client)
	require.NoError(t, engine.DoFullTableSync(context.Background(), mustShape(t, "todos")))

	var rows []map[string]any
	require.NoError(t, db.Table("todos").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0]["list_id"])
	assert.Equal(t, goalA, rows[0]["goal_id"])
}

func TestDoFullTableSyncEmptyRemoteWipesTable(t *testing.T) {
	db := testDB(t)
	seedList(t, db, listA, "gone")

	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "lists", mock.Anything).Return([]map[string]any{}, nil)

	engine := testEngine(t, db, client)
	require.NoError(t, engine.DoFullTableSync(context.Background(), mustShape(t, "lists")))

	assert.EqualValues(t, 0, countRows(t, db, "lists"))
}

func TestDoFullTableSyncEmptyRemoteKeepsLocalOriginRows(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Table("todos").Create(map[string]any{
		"id": todoA, "title": "written offline", "completed": false,
	}).Error)

	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "todos", mock.Anything).Return([]map[string]any{}, nil)

	engine := testEngine(t, db, client)
	require.NoError(t, engine.DoFullTableSync(context.Background(), mustShape(t, "todos")))

	assert.EqualValues(t, 1, countRows(t, db, "todos"))
}

func TestSyncFullTableToLocalSkipsPopulatedTable(t *testing.T) {
	db := testDB(t)
	seedList(t, db, listA, "already here")

	client := new(mocks.Client)
	engine := testEngine(t, db, client)

	require.NoError(t, engine.SyncFullTableToLocal(context.Background(), "lists"))
	client.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestForceFullTableSyncUnknownShape(t *testing.T) {
	db := testDB(t)
	engine := testEngine(t, db, new(mocks.Client))

	err := engine.ForceFullTableSync(context.Background(), "nope")
	assert.ErrorContains(t, err, "unknown shape")
}

func TestValidateShapeNoDriftDoesNotRepair(t *testing.T) {
	db := testDB(t)
	seedList(t, db, listA, "stable")

	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "lists", mock.Anything).Return([]map[string]any{
		{"id": listA},
	}, nil).Once()

	engine := testEngine(t, db, client)
	require.NoError(t, engine.ValidateShape(context.Background(), mustShape(t, "lists")))

	client.AssertExpectations(t)
}

func TestValidateShapeRepairsDrift(t *testing.T) {
	db := testDB(t)
	seedList(t, db, listA, "only one")

	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "lists", mock.Anything).Return([]map[string]any{
		{"id": listA, "name": "only one"},
		{"id": listB, "name": "missing locally"},
	}, nil)

	engine := testEngine(t, db, client)
	require.NoError(t, engine.ValidateShape(context.Background(), mustShape(t, "lists")))

	ids, err := database.TableIDs(db, "lists")
	require.NoError(t, err)
	assert.Equal(t, []string{listA, listB}, ids)
}

func TestStartDisabledPublishesDisabledStatus(t *testing.T) {
	db := testDB(t)
	client := new(mocks.Client)

	pub := status.NewPublisher(db, zap.NewNop())
	cfg := remote.Config{Enabled: false}
	tokens := token.NewProvider("", "", "test-token", 0)
	engine := NewEngine(db, client, tokens, pub, nil, shape.Registry(), cfg, zap.NewNop())

	engine.Start(context.Background())

	st, _ := pub.Get()
	assert.Equal(t, status.StatusDisabled, st)
	client.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartAuthFailurePublishesError(t *testing.T) {
	db := testDB(t)
	client := new(mocks.Client)

	pub := status.NewPublisher(db, zap.NewNop())
	cfg := remote.Config{Enabled: true, Attempts: 1, BackoffMillis: 1}
	// No static token and no auth endpoint: token acquisition must fail.
	tokens := token.NewProvider("", "", "", 0)
	engine := NewEngine(db, client, tokens, pub, nil, shape.Registry(), cfg, zap.NewNop())

	engine.Start(context.Background())

	st, msg := pub.Get()
	assert.Equal(t, status.StatusError, st)
	assert.Contains(t, msg, "check your account")
}

func TestSupersededRunCannotPublishStatus(t *testing.T) {
	db := testDB(t)
	pub := status.NewPublisher(db, zap.NewNop())
	cfg := remote.Config{Enabled: true, Attempts: 1, BackoffMillis: 1}
	tokens := token.NewProvider("", "", "test-token", 0)
	engine := NewEngine(db, new(mocks.Client), tokens, pub, nil, shape.Registry(), cfg, zap.NewNop())

	gen := engine.generation.Add(1)
	engine.setStatus(gen, status.StatusInitialSync, "")

	// A newer run takes over before the first one finishes; the old
	// run's terminal write must be dropped.
	engine.generation.Add(1)
	engine.setStatus(gen, status.StatusError, "late failure from the old run")

	st, msg := pub.Get()
	assert.Equal(t, status.StatusInitialSync, st)
	assert.Empty(t, msg)
}

func TestStartFullRun(t *testing.T) {
	db := testDB(t)

	client := new(mocks.Client)
	client.On("Snapshot", mock.Anything, "lists", mock.Anything).Return([]map[string]any{
		{"id": listA, "name": "inbox"},
	}, nil)
	client.On("Snapshot", mock.Anything, "goals", mock.Anything).Return([]map[string]any{
		{"id": goalA, "list_id": listA, "title": "ship it"},
	}, nil)
	client.On("Snapshot", mock.Anything, "todos", mock.Anything).Return([]map[string]any{
		{"id": todoA, "list_id": listA, "goal_id": goalA, "title": "write tests"},
	}, nil)

	pub := status.NewPublisher(db, zap.NewNop())
	cfg := remote.Config{Enabled: true, Attempts: 1, BackoffMillis: 1}
	tokens := token.NewProvider("", "", "test-token", 0)
	engine := NewEngine(db, client, tokens, pub, nil, shape.Registry(), cfg, zap.NewNop())

	var mu stdsync.Mutex
	var ready []string
	engine.OnShapeReady = func(s shape.Shape) {
		mu.Lock()
		ready = append(ready, s.Name)
		mu.Unlock()
	}

	engine.Start(context.Background())

	st, msg := pub.Get()
	assert.Equal(t, status.StatusDone, st)
	assert.Empty(t, msg)
	assert.True(t, engine.Completed())

	assert.EqualValues(t, 1, countRows(t, db, "lists"))
	assert.EqualValues(t, 1, countRows(t, db, "goals"))
	assert.EqualValues(t, 1, countRows(t, db, "todos"))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"lists", "goals", "todos"}, ready)
}
