package outbox

import (
	"context"
	"encoding/json"
	"time"

	"shapesync/core/database"
	"shapesync/core/remote"
	"shapesync/core/retry"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pusher drains the outbox queue to the remote store in batches.
type Pusher struct {
	db      *gorm.DB
	remote  remote.Client
	service *Service
	logger  *zap.Logger

	batchSize int
	debounce  time.Duration
	interval  time.Duration
	attempts  int
	backoff   time.Duration

	kick chan struct{}
}

// NewPusher wires the background push loop. remoteCfg supplies the retry
// budget shared with the sync engine.
func NewPusher(db *gorm.DB, client remote.Client, service *Service, remoteCfg remote.Config, batchSize int, debounce, interval time.Duration, logger *zap.Logger) *Pusher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Pusher{
		db:        db,
		remote:    client,
		service:   service,
		logger:    logger,
		batchSize: batchSize,
		debounce:  debounce,
		interval:  interval,
		attempts:  remoteCfg.Attempts,
		backoff:   time.Duration(remoteCfg.BackoffMillis) * time.Millisecond,
		kick:      make(chan struct{}, 1),
	}
}

// Notify schedules a debounced drain. Safe to call from any goroutine;
// redundant notifications coalesce.
func (p *Pusher) Notify() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run services the queue until the context is cancelled: debounced drains
// after local writes plus a periodic sweep for anything left behind.
func (p *Pusher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
			// Let a burst of writes settle into one batch.
			timer := time.NewTimer(p.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			p.drainLogged(ctx)
		case <-ticker.C:
			p.drainLogged(ctx)
		}
	}
}

func (p *Pusher) drainLogged(ctx context.Context) {
	if err := p.Drain(ctx); err != nil {
		p.logger.Warn("Outbox drain incomplete", zap.Error(err))
	}
}

// Drain pushes pending mutations batch by batch until the queue is empty
// or a batch fails. Acknowledged mutations are deleted. A permanently
// rejected batch falls back to per-mutation pushes, so only the mutation
// the server actually refuses is parked with its error.
func (p *Pusher) Drain(ctx context.Context) error {
	for {
		rows, err := p.service.Pending(p.batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		batch := make([]remote.Mutation, 0, len(rows))
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			batch = append(batch, toMutation(row))
			ids = append(ids, row.ID)
		}

		err = retry.Do(ctx, p.attempts, p.backoff, func() error {
			return p.remote.PushMutations(ctx, batch)
		})
		if err != nil {
			if retry.IsPermanent(err) {
				if len(rows) == 1 {
					p.park(ids, err)
					p.logger.Error("Server rejected mutation, parking it",
						zap.String("mutation", rows[0].ID), zap.Error(err))
					continue
				}
				p.logger.Warn("Server rejected mutation batch, retrying individually",
					zap.Int("mutations", len(rows)), zap.Error(err))
				if err := p.pushIndividually(ctx, rows); err != nil {
					return err
				}
				continue
			}
			p.bumpAttempts(ids, err)
			return err
		}

		if err := p.db.Delete(&database.OutboxMutation{}, "id IN ?", ids).Error; err != nil {
			return err
		}
		p.logger.Info("Pushed mutation batch", zap.Int("mutations", len(ids)))

		if len(rows) < p.batchSize {
			return nil
		}
	}
}

// pushIndividually retries a rejected batch one mutation at a time. Only
// the mutations the server refuses are parked; valid neighbors still go
// through. A transient failure stops the pass and leaves the rest queued.
func (p *Pusher) pushIndividually(ctx context.Context, rows []database.OutboxMutation) error {
	for _, row := range rows {
		single := []remote.Mutation{toMutation(row)}
		err := retry.Do(ctx, p.attempts, p.backoff, func() error {
			return p.remote.PushMutations(ctx, single)
		})
		if err != nil {
			if retry.IsPermanent(err) {
				p.park([]string{row.ID}, err)
				p.logger.Error("Server rejected mutation, parking it",
					zap.String("mutation", row.ID), zap.Error(err))
				continue
			}
			p.bumpAttempts([]string{row.ID}, err)
			return err
		}
		if err := p.db.Delete(&database.OutboxMutation{}, "id = ?", row.ID).Error; err != nil {
			return err
		}
	}
	return nil
}

func (p *Pusher) park(ids []string, cause error) {
	err := p.db.Model(&database.OutboxMutation{}).Where("id IN ?", ids).
		Updates(map[string]any{
			"last_error": cause.Error(),
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
	if err != nil {
		p.logger.Error("Failed to park rejected mutations", zap.Error(err))
	}
}

func (p *Pusher) bumpAttempts(ids []string, cause error) {
	err := p.db.Model(&database.OutboxMutation{}).Where("id IN ?", ids).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		p.logger.Error("Failed to record push attempt", zap.Error(err))
	}
	p.logger.Warn("Mutation push failed, will retry", zap.Int("mutations", len(ids)), zap.Error(cause))
}

func toMutation(row database.OutboxMutation) remote.Mutation {
	m := remote.Mutation{
		ID:           row.ID,
		Table:        row.TableName,
		Operation:    row.Operation,
		RowID:        row.RowID,
		IsNew:        row.IsNew,
		IsHardDelete: row.IsHardDelete,
	}
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &m.Changes); err != nil {
			m.Changes = nil
		}
	}
	return m
}
