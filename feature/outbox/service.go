package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shapesync/core/database"
	"shapesync/core/remote"
	"shapesync/core/shape"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrUnknownTable is returned for writes against a table outside the
// shape registry.
var ErrUnknownTable = errors.New("unknown table")

// ErrRowNotFound is returned when an update or delete targets a row that
// does not exist locally.
var ErrRowNotFound = errors.New("row not found")

// Service applies local writes to the replica and queues them for push.
type Service struct {
	db     *gorm.DB
	shapes []shape.Shape
	logger *zap.Logger

	// notify pokes the pusher after a successful local write. May be nil.
	notify func()
}

// NewService creates the local write service.
func NewService(db *gorm.DB, shapes []shape.Shape, logger *zap.Logger) *Service {
	return &Service{db: db, shapes: shapes, logger: logger}
}

// SetNotify installs the callback invoked after each committed write.
func (s *Service) SetNotify(fn func()) {
	s.notify = fn
}

// Insert creates a row locally and queues it for push. A missing id is
// generated. The stored row is returned.
func (s *Service) Insert(ctx context.Context, table string, row map[string]any) (map[string]any, error) {
	sh, ok := shape.ByName(s.shapes, table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	stored := projectRow(sh, row)
	if id, _ := stored["id"].(string); id == "" {
		stored["id"] = uuid.NewString()
	}
	shape.SanitizeRow(sh, stored)
	rowID := stored["id"].(string)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(sh.Name).Create(stored).Error; err != nil {
			return err
		}
		return s.enqueue(tx, sh.Name, remote.OpInsert, rowID, stored, true, false)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", sh.Name, err)
	}

	s.poke()
	return stored, nil
}

// Update applies a partial change to a local row and queues it.
func (s *Service) Update(ctx context.Context, table, id string, changes map[string]any) error {
	sh, ok := shape.ByName(s.shapes, table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	projected := projectRow(sh, changes)
	delete(projected, "id")
	shape.SanitizeRow(sh, projected)
	if len(projected) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table(sh.Name).Where("id = ?", id).Updates(projected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s/%s", ErrRowNotFound, sh.Name, id)
		}
		return s.enqueue(tx, sh.Name, remote.OpUpdate, id, projected, false, false)
	})
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return err
		}
		return fmt.Errorf("failed to update %s/%s: %w", sh.Name, id, err)
	}

	s.poke()
	return nil
}

// Delete removes a row per the shape's deletion policy and queues the
// delete. hard forces physical removal even on soft-delete shapes.
func (s *Service) Delete(ctx context.Context, table, id string, hard bool) error {
	sh, ok := shape.ByName(s.shapes, table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	soft := sh.SoftDelete != nil && !hard

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res *gorm.DB
		if soft {
			res = tx.Table(sh.Name).Where("id = ?", id).
				Update(sh.SoftDelete.Column, sh.SoftDelete.Value)
		} else {
			res = tx.Table(sh.Name).Where("id = ?", id).Delete(nil)
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s/%s", ErrRowNotFound, sh.Name, id)
		}
		return s.enqueue(tx, sh.Name, remote.OpDelete, id, nil, false, !soft)
	})
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete %s/%s: %w", sh.Name, id, err)
	}

	s.poke()
	return nil
}

// Pending lists queued mutations that are not parked, oldest first.
func (s *Service) Pending(limit int) ([]database.OutboxMutation, error) {
	var rows []database.OutboxMutation
	q := s.db.Where("last_error = ''").Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	return rows, nil
}

// Parked lists mutations a permanent server rejection has taken out of
// the push loop.
func (s *Service) Parked() ([]database.OutboxMutation, error) {
	var rows []database.OutboxMutation
	if err := s.db.Where("last_error <> ''").Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list parked mutations: %w", err)
	}
	return rows, nil
}

func (s *Service) enqueue(tx *gorm.DB, table, op, rowID string, changes map[string]any, isNew, isHard bool) error {
	payload := ""
	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("failed to encode mutation payload: %w", err)
		}
		payload = string(raw)
	}

	return tx.Create(&database.OutboxMutation{
		ID:           uuid.NewString(),
		TableName:    table,
		Operation:    op,
		RowID:        rowID,
		Payload:      payload,
		IsNew:        isNew,
		IsHardDelete: isHard,
		CreatedAt:    time.Now(),
	}).Error
}

func (s *Service) poke() {
	if s.notify != nil {
		s.notify()
	}
}

// projectRow keeps only columns the shape declares.
func projectRow(s shape.Shape, row map[string]any) map[string]any {
	known := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		known[c.Name] = true
	}

	out := make(map[string]any, len(row))
	for col, val := range row {
		if known[col] {
			out[col] = val
		}
	}
	return out
}
