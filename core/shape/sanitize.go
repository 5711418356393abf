package shape

import "github.com/google/uuid"

// SanitizeForeignKey validates a foreign key value against the UUID-or-null
// contract. A nil value stays nil; a syntactically valid UUID string passes
// through unchanged; anything else (malformed strings, wrong types, empty
// strings) is coerced to nil so it can never corrupt referential integrity
// in the local replica.
func SanitizeForeignKey(value any) any {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return nil
	}
	return s
}

// SanitizeRow applies SanitizeForeignKey to every foreign key column of the
// shape present in the row. The row is modified in place and returned for
// convenience. Non-FK columns are never touched.
func SanitizeRow(s Shape, row map[string]any) map[string]any {
	for _, fk := range s.ForeignKeys() {
		if v, present := row[fk.Name]; present {
			row[fk.Name] = SanitizeForeignKey(v)
		}
	}
	return row
}
