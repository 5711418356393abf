package shape

import "fmt"

// Column describes one projected column of a shape.
type Column struct {
	// Name is the column name as it appears on the remote table.
	Name string

	// Type is the logical column type: "uuid", "text", "numeric",
	// "boolean" or "timestamp". Drivers map it to a concrete SQL type.
	Type string

	// References names the shape whose id column this column points at.
	// Empty for non-foreign-key columns.
	References string
}

// SoftDelete describes how a remote delete is applied for shapes where
// deletion models an archival business rule rather than a hard removal.
type SoftDelete struct {
	// Column is the local flag column to set.
	Column string

	// Value is the value written to Column instead of deleting the row.
	Value any
}

// Shape is a named remote table projection mirrored into the local replica.
type Shape struct {
	// Name is the remote table name.
	Name string

	// Columns is the projected column set. The primary key column "id"
	// must always be present.
	Columns []Column

	// DependsOn lists the shapes this shape references via foreign keys.
	// Referenced shapes must be synced before this one.
	DependsOn []string

	// LocalOrigin marks the shape as locally-originated tolerant: rows may
	// exist locally before they ever reach the server, so an empty remote
	// snapshot must not delete them.
	LocalOrigin bool

	// SoftDelete, when set, replaces hard deletion of remote-deleted rows
	// with a local flag update.
	SoftDelete *SoftDelete
}

// ColumnNames returns the projected column names in declaration order.
func (s Shape) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}

// ForeignKeys returns the columns that reference another shape.
func (s Shape) ForeignKeys() []Column {
	var fks []Column
	for _, c := range s.Columns {
		if c.References != "" {
			fks = append(fks, c)
		}
	}
	return fks
}

// Registry returns the static set of shapes the replica mirrors, in
// declaration order. The engine never discovers tables dynamically.
func Registry() []Shape {
	return []Shape{
		{
			Name: "lists",
			Columns: []Column{
				{Name: "id", Type: "uuid"},
				{Name: "name", Type: "text"},
				{Name: "color", Type: "text"},
				{Name: "position", Type: "numeric"},
				{Name: "created_at", Type: "timestamp"},
			},
		},
		{
			Name: "goals",
			Columns: []Column{
				{Name: "id", Type: "uuid"},
				{Name: "list_id", Type: "uuid", References: "lists"},
				{Name: "title", Type: "text"},
				{Name: "target_date", Type: "timestamp"},
				{Name: "completed", Type: "boolean"},
				{Name: "created_at", Type: "timestamp"},
			},
			DependsOn: []string{"lists"},
		},
		{
			Name: "todos",
			Columns: []Column{
				{Name: "id", Type: "uuid"},
				{Name: "list_id", Type: "uuid", References: "lists"},
				{Name: "goal_id", Type: "uuid", References: "goals"},
				{Name: "title", Type: "text"},
				{Name: "notes", Type: "text"},
				{Name: "due_date", Type: "timestamp"},
				{Name: "completed", Type: "boolean"},
				{Name: "archived", Type: "boolean"},
				{Name: "position", Type: "numeric"},
				{Name: "created_at", Type: "timestamp"},
			},
			DependsOn:   []string{"lists", "goals"},
			LocalOrigin: true,
			SoftDelete:  &SoftDelete{Column: "archived", Value: true},
		},
	}
}

// ByName looks up a shape in the given set.
func ByName(shapes []Shape, name string) (Shape, bool) {
	for _, s := range shapes {
		if s.Name == name {
			return s, true
		}
	}
	return Shape{}, false
}

// Ordered returns the shapes sorted so that every shape appears after all
// shapes it depends on. The sort is stable: shapes with satisfied
// dependencies keep their declaration order.
func Ordered(shapes []Shape) ([]Shape, error) {
	placed := make(map[string]bool, len(shapes))
	ordered := make([]Shape, 0, len(shapes))
	remaining := append([]Shape(nil), shapes...)

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, s := range remaining {
			ready := true
			for _, dep := range s.DependsOn {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, s)
				placed[s.Name] = true
				progressed = true
			} else {
				next = append(next, s)
			}
		}
		if !progressed {
			return nil, fmt.Errorf("shape dependency cycle or missing referent among %d shapes", len(next))
		}
		remaining = next
	}

	return ordered, nil
}
