package status

import (
	"sync"
	"time"

	"shapesync/core/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Status is the process-wide synchronization phase.
type Status string

const (
	StatusInitialSync Status = "initial-sync"
	StatusDone        Status = "done"
	StatusError       Status = "error"
	StatusDisabled    Status = "disabled"
	StatusLocalOnly   Status = "local-only"
)

// Update is one broadcast status change.
type Update struct {
	Status  Status
	Message string
}

// Publisher owns the current sync status and the subscriber registry.
// Safe for concurrent use.
type Publisher struct {
	db     *gorm.DB
	logger *zap.Logger

	mu      sync.RWMutex
	current Update
	subs    map[int]chan Update
	nextID  int
}

// NewPublisher creates a publisher starting in the local-only status.
// db may be nil (no persistence, used by unit tests and the repair command).
func NewPublisher(db *gorm.DB, logger *zap.Logger) *Publisher {
	return &Publisher{
		db:      db,
		logger:  logger,
		current: Update{Status: StatusLocalOnly},
		subs:    make(map[int]chan Update),
	}
}

// Load restores the persisted status from the bookkeeping row, if any.
func (p *Publisher) Load() {
	if p.db == nil {
		return
	}

	var state database.SyncState
	if err := p.db.First(&state, 1).Error; err != nil {
		return // no persisted state yet
	}

	p.mu.Lock()
	p.current = Update{Status: Status(state.Status), Message: state.Message}
	p.mu.Unlock()
}

// Get returns the current status synchronously.
func (p *Publisher) Get() (Status, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Status, p.current.Message
}

// Set transitions to the given status, persists it and broadcasts to all
// subscribers. Setting the current value again is broadcast anyway; the
// engine guards its own idempotence.
func (p *Publisher) Set(s Status, message string) {
	update := Update{Status: s, Message: message}

	p.mu.Lock()
	p.current = update
	subs := make([]chan Update, 0, len(p.subs))
	for _, ch := range p.subs {
		subs = append(subs, ch)
	}
	p.mu.Unlock()

	p.persist(update)

	for _, ch := range subs {
		// Non-blocking: a full subscriber channel drops this update; the
		// subscriber still converges on the next receive.
		select {
		case ch <- update:
		default:
		}
	}
}

// Subscribe registers a new observer. The returned channel immediately
// carries the current status, so late subscribers never miss the state
// they joined in. The cancel function removes the subscription.
func (p *Publisher) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	current := p.current
	p.mu.Unlock()

	ch <- current

	cancel := func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
	return ch, cancel
}

func (p *Publisher) persist(u Update) {
	if p.db == nil {
		return
	}

	state := database.SyncState{
		ID:        1,
		Status:    string(u.Status),
		Message:   u.Message,
		UpdatedAt: time.Now(),
	}
	err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "message", "updated_at"}),
	}).Create(&state).Error
	if err != nil && p.logger != nil {
		p.logger.Warn("Failed to persist sync status", zap.Error(err))
	}
}
