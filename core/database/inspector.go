package database

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// HasTable reports whether the given table exists in the local replica.
func HasTable(db *gorm.DB, table string) bool {
	return db.Migrator().HasTable(table)
}

// RowCount returns the number of rows in a table. Used as the cheap
// emptiness check before deciding whether a full sync is needed.
func RowCount(db *gorm.DB, table string) (int64, error) {
	var count int64
	if err := db.Table(table).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// TableIDs returns the sorted set of primary key values of a table. This is
// the input to content hashing, so the order must be deterministic.
func TableIDs(db *gorm.DB, table string) ([]string, error) {
	var ids []string
	if err := db.Table(table).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list ids of %s: %w", table, err)
	}
	sort.Strings(ids)
	return ids, nil
}
