package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shapesync/core/database"
	"shapesync/core/remote"
	"shapesync/core/shape"
	"shapesync/core/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxStreamBackoff = time.Minute

// RepairFunc forces a full resync of one table. Satisfied by the
// reconciliation engine's ForceFullTableSync.
type RepairFunc func(ctx context.Context, table string) error

// Applier consumes change streams and applies them to the local replica.
type Applier struct {
	db      *gorm.DB
	remote  remote.Client
	cursors *CursorStore
	repair  RepairFunc
	backoff time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	running map[string]bool
}

// NewApplier wires a stream applier. backoff is the initial resubscribe
// delay; it doubles per consecutive failure up to one minute.
func NewApplier(db *gorm.DB, client remote.Client, cursors *CursorStore, repair RepairFunc, backoff time.Duration, logger *zap.Logger) *Applier {
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Applier{
		db:      db,
		remote:  client,
		cursors: cursors,
		repair:  repair,
		backoff: backoff,
		logger:  logger,
		running: make(map[string]bool),
	}
}

// Run streams changes for one shape until the context is cancelled.
// Intended to run as a goroutine per shape. At most one Run per shape is
// live at a time: a second call for a shape that is already streaming
// returns immediately, so repeated sync runs never stack subscriptions
// or put concurrent writers on the same table.
func (a *Applier) Run(ctx context.Context, s shape.Shape) {
	if !a.begin(s.Name) {
		a.logger.Debug("Applier already running for table", zap.String("table", s.Name))
		return
	}
	defer a.end(s.Name)

	delay := a.backoff

	for ctx.Err() == nil {
		since, err := a.cursors.Get(s.Name)
		if err != nil {
			a.logger.Error("Failed to load stream cursor", zap.String("table", s.Name), zap.Error(err))
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = bump(delay)
			continue
		}

		ch, err := a.remote.Subscribe(ctx, s.Name, s.ColumnNames(), since)
		if err != nil {
			a.logger.Warn("Failed to open change stream",
				zap.String("table", s.Name), zap.Int64("since", since), zap.Error(err))
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = bump(delay)
			continue
		}

		a.logger.Info("Change stream opened", zap.String("table", s.Name), zap.Int64("since", since))

		handled, alive := a.consume(ctx, s, ch)
		if !alive {
			return
		}
		// Only a stream that delivered something resets the backoff; a
		// subscription that opens and dies right away keeps escalating.
		if handled {
			delay = a.backoff
		} else {
			delay = bump(delay)
		}
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

// consume drains one subscription. handled reports whether at least one
// message was processed; alive is false when the context is done and true
// when the stream ended and the caller should resubscribe.
func (a *Applier) consume(ctx context.Context, s shape.Shape, ch <-chan remote.ChangeMessage) (handled, alive bool) {
	for {
		select {
		case <-ctx.Done():
			return handled, false
		case msg, ok := <-ch:
			if !ok {
				return handled, true
			}
			if msg.Err != nil {
				a.logger.Warn("Change stream failed",
					zap.String("table", s.Name), zap.Error(msg.Err))
				return handled, true
			}
			if msg.Control == remote.ControlMustRefetch {
				a.handleMustRefetch(ctx, s, msg)
				return true, ctx.Err() == nil
			}
			if err := a.Apply(ctx, s, msg); err != nil {
				// A skipped change leaves drift that hash validation
				// repairs on the next run.
				a.logger.Error("Failed to apply change",
					zap.String("table", s.Name),
					zap.String("operation", msg.Operation),
					zap.Int64("lsn", msg.LSN),
					zap.Error(err))
			} else {
				handled = true
			}
		}
	}
}

// begin claims the per-shape runner slot; it reports false when another
// Run already holds it.
func (a *Applier) begin(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running[name] {
		return false
	}
	a.running[name] = true
	return true
}

func (a *Applier) end(name string) {
	a.mu.Lock()
	delete(a.running, name)
	a.mu.Unlock()
}

func (a *Applier) handleMustRefetch(ctx context.Context, s shape.Shape, msg remote.ChangeMessage) {
	a.logger.Info("Stream requested refetch, resyncing table", zap.String("table", s.Name))

	if err := a.repair(ctx, s.Name); err != nil {
		a.logger.Error("Refetch resync failed", zap.String("table", s.Name), zap.Error(err))
		return
	}
	if msg.LSN > 0 {
		if err := a.cursors.Advance(a.db, s.Name, msg.LSN); err != nil {
			a.logger.Error("Failed to advance cursor after refetch",
				zap.String("table", s.Name), zap.Error(err))
		}
	}
}

// Apply writes one change message to the replica. The cursor advance and
// the row change commit atomically; messages at or below the persisted
// cursor are discarded, which makes Apply idempotent under replays.
func (a *Applier) Apply(ctx context.Context, s shape.Shape, msg remote.ChangeMessage) error {
	id := utils.ToString(msg.Row["id"])
	if id == "" {
		return fmt.Errorf("change message for %s carries no row id", s.Name)
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur database.ShapeCursor
		err := tx.First(&cur, "shape = ?", s.Name).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && msg.LSN <= cur.Position {
			return nil // already applied
		}

		if err := a.cursors.Advance(tx, s.Name, msg.LSN); err != nil {
			return err
		}

		switch msg.Operation {
		case remote.OpInsert:
			return applyInsert(tx, s, msg.Row)
		case remote.OpUpdate:
			return applyUpdate(tx, s, id, msg.Row)
		case remote.OpDelete:
			return applyDelete(tx, s, id)
		default:
			return fmt.Errorf("unknown stream operation %q", msg.Operation)
		}
	})
}

// applyInsert upserts the full row. An insert replayed over an existing
// row, or racing a full sync that already wrote it, degrades to an update.
func applyInsert(tx *gorm.DB, s shape.Shape, row map[string]any) error {
	shape.SanitizeRow(s, row)

	normalized := make(map[string]any, len(s.Columns))
	updatable := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		normalized[c.Name] = row[c.Name]
		if c.Name != "id" {
			updatable = append(updatable, c.Name)
		}
	}

	return tx.Table(s.Name).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(updatable),
	}).Create(normalized).Error
}

// applyUpdate writes only the columns the message carries. Updates for
// rows not present locally are dropped; validation reconverges them.
func applyUpdate(tx *gorm.DB, s shape.Shape, id string, row map[string]any) error {
	shape.SanitizeRow(s, row)

	known := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		known[c.Name] = true
	}

	changes := make(map[string]any, len(row))
	for col, val := range row {
		if col != "id" && known[col] {
			changes[col] = val
		}
	}
	if len(changes) == 0 {
		return nil
	}

	return tx.Table(s.Name).Where("id = ?", id).Updates(changes).Error
}

// applyDelete removes the row, or flags it when the shape soft-deletes.
func applyDelete(tx *gorm.DB, s shape.Shape, id string) error {
	if s.SoftDelete != nil {
		return tx.Table(s.Name).Where("id = ?", id).
			Update(s.SoftDelete.Column, s.SoftDelete.Value).Error
	}
	return tx.Table(s.Name).Where("id = ?", id).Delete(nil).Error
}

// sleepCtx waits for d or until the context is done; it reports whether
// the context is still live.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func bump(d time.Duration) time.Duration {
	d *= 2
	if d > maxStreamBackoff {
		return maxStreamBackoff
	}
	return d
}
