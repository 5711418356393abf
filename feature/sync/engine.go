package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"shapesync/core/database"
	"shapesync/core/remote"
	"shapesync/core/retry"
	"shapesync/core/shape"
	"shapesync/core/status"
	"shapesync/core/token"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

// Engine reconciles the local replica with the remote shape server.
type Engine struct {
	db       *gorm.DB
	remote   remote.Client
	tokens   *token.Provider
	status   *status.Publisher
	archiver *Archiver
	shapes   []shape.Shape
	cfg      remote.Config
	logger   *zap.Logger

	// OnShapeReady is invoked once per shape after its startup sync and
	// validation finished, whether or not drift was repaired. The live
	// apply engine hooks in here to start streaming for the shape.
	OnShapeReady func(shape.Shape)

	generation atomic.Int64
	completion Completion
	repairs    singleflight.Group
}

// NewEngine wires the reconciliation engine. The archiver may be nil, in
// which case destructive repairs proceed without archiving.
func NewEngine(
	db *gorm.DB,
	client remote.Client,
	tokens *token.Provider,
	pub *status.Publisher,
	archiver *Archiver,
	shapes []shape.Shape,
	cfg remote.Config,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		db:       db,
		remote:   client,
		tokens:   tokens,
		status:   pub,
		archiver: archiver,
		shapes:   shapes,
		cfg:      cfg,
		logger:   logger,
	}
}

// Completed reports whether the one-time completion step has run.
func (e *Engine) Completed() bool {
	return e.completion.Done()
}

// Start runs the full startup sequence: token check, dependency-ordered
// full sync of empty tables, parallel hash validation with self-healing,
// then the one-time completion step. It is safe to call again after a
// failure; when calls overlap, only the latest invocation may publish
// status updates.
func (e *Engine) Start(ctx context.Context) {
	if !e.cfg.Enabled {
		e.status.Set(status.StatusDisabled, "synchronization is disabled by configuration")
		return
	}

	gen := e.generation.Add(1)
	e.setStatus(gen, status.StatusInitialSync, "")

	if _, err := e.tokens.Token(ctx); err != nil {
		e.tokens.Invalidate()
		e.logger.Error("Failed to acquire sync token", zap.Error(err))
		e.setStatus(gen, status.StatusError, "cannot sync, check your account")
		return
	}

	ordered, err := shape.Ordered(e.shapes)
	if err != nil {
		e.logger.Error("Invalid shape registry", zap.Error(err))
		e.setStatus(gen, status.StatusError, err.Error())
		return
	}

	for _, s := range ordered {
		if err := e.SyncFullTableToLocal(ctx, s.Name); err != nil {
			if isAuthError(err) {
				e.tokens.Invalidate()
				e.logger.Error("Sync rejected by remote", zap.String("table", s.Name), zap.Error(err))
				e.setStatus(gen, status.StatusError, "cannot sync, check your account")
				return
			}
			// One failing shape must not block the others; validation
			// below gets another chance to repair it.
			e.logger.Error("Full table sync failed", zap.String("table", s.Name), zap.Error(err))
		}
	}

	failures := make([]string, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range ordered {
		i, s := i, s
		g.Go(func() error {
			if err := e.ValidateShape(gctx, s); err != nil {
				e.logger.Error("Shape validation failed", zap.String("table", s.Name), zap.Error(err))
				failures[i] = s.Name
				return nil
			}
			if e.OnShapeReady != nil && gctx.Err() == nil {
				e.OnShapeReady(s)
			}
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, name := range failures {
		if name != "" {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		e.setStatus(gen, status.StatusError, fmt.Sprintf("sync failed for: %s", strings.Join(failed, ", ")))
		return
	}

	ran, err := e.completion.CompleteOnce(func() error {
		return database.EnsureIndexes(e.db, e.shapes)
	})
	if err != nil {
		// The replica itself is consistent, only the secondary indexes
		// are missing; degrade to slower queries instead of failing.
		e.logger.Warn("Post-sync index creation failed", zap.Error(err))
	}
	if ran {
		e.logger.Info("Initial sync completed")
	}
	e.setStatus(gen, status.StatusDone, "")
}

// SyncFullTableToLocal syncs the named shape only when its local table is
// empty. Non-empty tables are left to hash validation and the live stream.
func (e *Engine) SyncFullTableToLocal(ctx context.Context, table string) error {
	s, ok := shape.ByName(e.shapes, table)
	if !ok {
		return fmt.Errorf("unknown shape %q", table)
	}

	count, err := database.RowCount(e.db, s.Name)
	if err != nil {
		return err
	}
	if count > 0 {
		e.logger.Debug("Table already populated, skipping full sync",
			zap.String("table", s.Name), zap.Int64("rows", count))
		return nil
	}
	return e.DoFullTableSync(ctx, s)
}

// ForceFullTableSync unconditionally resyncs the named shape. Concurrent
// repairs of the same table are coalesced into a single sync.
func (e *Engine) ForceFullTableSync(ctx context.Context, table string) error {
	s, ok := shape.ByName(e.shapes, table)
	if !ok {
		return fmt.Errorf("unknown shape %q", table)
	}
	_, err, _ := e.repairs.Do(s.Name, func() (any, error) {
		return nil, e.DoFullTableSync(ctx, s)
	})
	return err
}

// DoFullTableSync downloads the remote snapshot for the shape and
// reconciles the local table against it inside one transaction.
func (e *Engine) DoFullTableSync(ctx context.Context, s shape.Shape) error {
	started := time.Now()

	var rows []map[string]any
	err := retry.Do(ctx, e.cfg.Attempts, time.Duration(e.cfg.BackoffMillis)*time.Millisecond, func() error {
		snapshot, err := remote.SnapshotShape(ctx, e.remote, s)
		if err != nil {
			if isAuthError(err) {
				return retry.Permanent(err)
			}
			return err
		}
		rows = snapshot
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", s.Name, err)
	}

	for _, row := range rows {
		shape.SanitizeRow(s, row)
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) == 0 {
			return e.reconcileEmpty(ctx, tx, s)
		}

		ids := rowIDs(rows)
		if err := e.deleteOrphans(ctx, tx, s, ids); err != nil {
			return err
		}
		return e.upsertRows(tx, s, rows)
	})
	if err != nil {
		return fmt.Errorf("failed to sync %s: %w", s.Name, err)
	}

	e.logger.Info("Full table sync finished",
		zap.String("table", s.Name),
		zap.Int("rows", len(rows)),
		zap.Duration("took", time.Since(started)))
	return nil
}

// ValidateShape compares the local and remote primary key digests and
// forces a full resync of the shape when they diverge.
func (e *Engine) ValidateShape(ctx context.Context, s shape.Shape) error {
	var snapshot []map[string]any
	err := retry.Do(ctx, e.cfg.Attempts, time.Duration(e.cfg.BackoffMillis)*time.Millisecond, func() error {
		rows, err := e.remote.Snapshot(ctx, s.Name, []string{"id"})
		if err != nil {
			if isAuthError(err) {
				return retry.Permanent(err)
			}
			return err
		}
		snapshot = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to fetch remote ids for %s: %w", s.Name, err)
	}
	remoteHash := ContentHash(rowIDs(snapshot))

	localIDs, err := database.TableIDs(e.db, s.Name)
	if err != nil {
		return err
	}
	localHash := ContentHash(localIDs)

	if localHash == remoteHash {
		e.logger.Debug("Shape content verified", zap.String("table", s.Name))
		return nil
	}

	e.logger.Info("Content drift detected, repairing",
		zap.String("table", s.Name),
		zap.String("local_hash", localHash),
		zap.String("remote_hash", remoteHash))

	if err := e.ForceFullTableSync(ctx, s.Name); err != nil {
		return err
	}

	repairedIDs, err := database.TableIDs(e.db, s.Name)
	if err != nil {
		return err
	}
	repairedHash := ContentHash(repairedIDs)
	if repairedHash != remoteHash {
		// The remote may have changed between snapshot and repair; the
		// next validation pass converges.
		e.logger.Warn("Hashes still differ after repair",
			zap.String("table", s.Name),
			zap.String("local_hash", repairedHash),
			zap.String("remote_hash", remoteHash))
		return nil
	}

	e.logger.Info("Drift repaired", zap.String("table", s.Name))
	return nil
}

// reconcileEmpty handles an empty remote snapshot: tolerant shapes keep
// their local rows, everything else is wiped after archiving.
func (e *Engine) reconcileEmpty(ctx context.Context, tx *gorm.DB, s shape.Shape) error {
	if s.LocalOrigin {
		e.logger.Info("Remote snapshot empty, keeping locally originated rows",
			zap.String("table", s.Name))
		return nil
	}
	e.archiveWhere(ctx, tx, s.Name, nil)
	return tx.Table(s.Name).Where("1 = 1").Delete(nil).Error
}

// deleteOrphans removes local rows whose id is absent from the remote set.
func (e *Engine) deleteOrphans(ctx context.Context, tx *gorm.DB, s shape.Shape, remoteIDs []string) error {
	var orphans []string
	if err := tx.Table(s.Name).Where("id NOT IN ?", remoteIDs).Pluck("id", &orphans).Error; err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	e.logger.Info("Deleting orphaned local rows",
		zap.String("table", s.Name), zap.Int("count", len(orphans)))
	e.archiveWhere(ctx, tx, s.Name, orphans)
	return tx.Table(s.Name).Where("id IN ?", orphans).Delete(nil).Error
}

// upsertRows bulk-writes the snapshot with last-writer-wins conflict
// handling on the primary key.
func (e *Engine) upsertRows(tx *gorm.DB, s shape.Shape, rows []map[string]any) error {
	updatable := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name != "id" {
			updatable = append(updatable, c.Name)
		}
	}

	for start := 0; start < len(rows); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		batch := make([]map[string]any, 0, end-start)
		for _, row := range rows[start:end] {
			batch = append(batch, normalizeRow(s, row))
		}

		err := tx.Table(s.Name).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updatable),
		}).Create(batch).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// archiveWhere uploads the rows matching ids (all rows when ids is nil)
// before they are deleted. Archive failures never abort the repair.
func (e *Engine) archiveWhere(ctx context.Context, tx *gorm.DB, table string, ids []string) {
	if e.archiver == nil {
		return
	}

	q := tx.Table(table)
	if ids != nil {
		q = q.Where("id IN ?", ids)
	}
	var rows []map[string]any
	if err := q.Find(&rows).Error; err != nil {
		e.logger.Warn("Failed to read rows for archiving",
			zap.String("table", table), zap.Error(err))
		return
	}
	if err := e.archiver.ArchiveRows(ctx, table, rows); err != nil {
		e.logger.Warn("Failed to archive rows",
			zap.String("table", table), zap.Error(err))
	}
}

// normalizeRow projects the row onto the shape's full column set so every
// row in a batch carries identical keys.
func normalizeRow(s shape.Shape, row map[string]any) map[string]any {
	out := make(map[string]any, len(s.Columns))
	for _, c := range s.Columns {
		out[c.Name] = row[c.Name]
	}
	return out
}

// setStatus publishes only when this generation is still the latest run.
func (e *Engine) setStatus(gen int64, st status.Status, msg string) {
	if e.generation.Load() != gen {
		e.logger.Debug("Ignoring status from superseded sync run",
			zap.String("status", string(st)))
		return
	}
	e.status.Set(st, msg)
}

func isAuthError(err error) bool {
	var authErr *token.AuthError
	return errors.As(err, &authErr)
}
