package database

import (
	"fmt"
	"strings"
	"time"

	"shapesync/core/shape"

	"gorm.io/gorm"
)

// ShapeCursor records how far the live apply engine has consumed a shape's
// change stream. Position is monotonically non-decreasing.
type ShapeCursor struct {
	Shape     string `gorm:"primaryKey;size:64"`
	Position  int64
	UpdatedAt time.Time
}

// SyncState is the persisted process-wide sync status (a single row with
// ID 1) so the status survives restarts.
type SyncState struct {
	ID        int    `gorm:"primaryKey"`
	Status    string `gorm:"size:32"`
	Message   string `gorm:"size:512"`
	UpdatedAt time.Time
}

// OutboxMutation is one pending local write queued for push to the remote
// store. Rows are deleted on server acknowledgment; a non-empty LastError
// parks the mutation for operator attention instead of retrying it in the
// hot path.
type OutboxMutation struct {
	ID           string `gorm:"primaryKey;size:36"`
	TableName    string `gorm:"size:64;index"`
	Operation    string `gorm:"size:16"`
	RowID        string `gorm:"size:36"`
	Payload      string
	IsNew        bool
	IsHardDelete bool
	Attempts     int
	LastError    string `gorm:"size:512"`
	CreatedAt    time.Time
}

// Migrate creates the bookkeeping tables and the mirrored table for every
// shape in the registry. Mirrored tables carry no foreign key constraints:
// referential integrity is maintained by dependency-ordered sync and FK
// sanitization, and constraints would reject rows mid-sync.
func Migrate(db *gorm.DB, shapes []shape.Shape) error {
	if err := db.AutoMigrate(&ShapeCursor{}, &SyncState{}, &OutboxMutation{}); err != nil {
		return fmt.Errorf("failed to migrate bookkeeping tables: %w", err)
	}

	for _, s := range shapes {
		if db.Migrator().HasTable(s.Name) {
			continue
		}
		if err := db.Exec(createTableSQL(db.Dialector.Name(), s)).Error; err != nil {
			return fmt.Errorf("failed to create mirrored table %s: %w", s.Name, err)
		}
	}

	return nil
}

// EnsureIndexes creates secondary indexes on every foreign key column.
// Called once after the initial bulk load; creating them earlier would slow
// every upsert of the first full sync.
func EnsureIndexes(db *gorm.DB, shapes []shape.Shape) error {
	for _, s := range shapes {
		for _, fk := range s.ForeignKeys() {
			name := fmt.Sprintf("idx_%s_%s", s.Name, fk.Name)
			var stmt string
			if db.Dialector.Name() == "sqlite" {
				stmt = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON `%s` (`%s`)", name, s.Name, fk.Name)
			} else {
				// MySQL has no IF NOT EXISTS for indexes.
				if db.Migrator().HasIndex(s.Name, name) {
					continue
				}
				stmt = fmt.Sprintf("CREATE INDEX %s ON `%s` (`%s`)", name, s.Name, fk.Name)
			}
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to create index %s: %w", name, err)
			}
		}
	}
	return nil
}

func createTableSQL(dialect string, s shape.Shape) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS `%s` (", s.Name)

	for i, col := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "`%s` %s", col.Name, columnType(dialect, col.Type))
		if col.Name == "id" {
			b.WriteString(" PRIMARY KEY")
		}
	}

	b.WriteString(")")
	return b.String()
}

// columnType maps a shape's logical column type to a concrete SQL type.
func columnType(dialect, logical string) string {
	if dialect == "sqlite" {
		switch logical {
		case "numeric":
			return "NUMERIC"
		case "boolean":
			return "INTEGER"
		default:
			// uuid, text, timestamp
			return "TEXT"
		}
	}

	switch logical {
	case "uuid":
		return "VARCHAR(36)"
	case "numeric":
		return "DOUBLE"
	case "boolean":
		return "TINYINT(1)"
	case "timestamp":
		return "VARCHAR(64)"
	default:
		return "TEXT"
	}
}
