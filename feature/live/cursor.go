package live

import (
	"errors"
	"fmt"

	"shapesync/core/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorStore persists how far each shape's change stream has been
// consumed. Positions only ever move forward.
type CursorStore struct {
	db *gorm.DB
}

// NewCursorStore creates a cursor store backed by the given database.
func NewCursorStore(db *gorm.DB) *CursorStore {
	return &CursorStore{db: db}
}

// Get returns the persisted position for a shape, or zero when the shape
// has never been streamed.
func (c *CursorStore) Get(shapeName string) (int64, error) {
	var cur database.ShapeCursor
	err := c.db.First(&cur, "shape = ?", shapeName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load cursor for %s: %w", shapeName, err)
	}
	return cur.Position, nil
}

// Advance moves the cursor forward to pos within the given transaction.
// A pos at or below the stored position leaves the cursor untouched, so
// the cursor can never regress no matter how messages are replayed.
func (c *CursorStore) Advance(tx *gorm.DB, shapeName string, pos int64) error {
	res := tx.Model(&database.ShapeCursor{}).
		Where("shape = ? AND position < ?", shapeName, pos).
		Update("position", pos)
	if res.Error != nil {
		return fmt.Errorf("failed to advance cursor for %s: %w", shapeName, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Either no cursor row exists yet or the stored position is already
	// at or past pos; DoNothing keeps the larger value in the latter case.
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&database.ShapeCursor{Shape: shapeName, Position: pos}).Error
	if err != nil {
		return fmt.Errorf("failed to create cursor for %s: %w", shapeName, err)
	}
	return nil
}
