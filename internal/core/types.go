package core

import (
	"fmt"
	"strings"
	"time"
)

// FieldType represents the declared data type of an entity field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldNumeric
	FieldBool
)

// Entity is implemented by every persisted record type.
// Entities are always pointers so the store can write the assigned ID back.
type Entity interface {
	EntityID() int64
	SetEntityID(id int64)
	EntityVersion() int64
	SetEntityVersion(v int64)
}

// Model carries the system columns shared by all entities.
// Embed it in a record struct to satisfy Entity.
type Model struct {
	ID      int64 `json:"id" yaml:"-"`
	Version int64 `json:"version,omitempty" yaml:"-"`
}

func (m *Model) EntityID() int64          { return m.ID }
func (m *Model) SetEntityID(id int64)     { m.ID = id }
func (m *Model) EntityVersion() int64     { return m.Version }
func (m *Model) SetEntityVersion(v int64) { m.Version = v }

// Field describes a single column of an entity.
type Field[T Entity] struct {
	Name     string    // Request/JSON name: "surname"
	Column   string    // Database column name: "surname"
	Type     FieldType // Declared type
	Required bool      // Must be non-empty on create/update
	ReadOnly bool      // Assigned by the store, never written by callers

	// Ref returns a pointer into the entity: *string, *time.Time, *int64,
	// *float64 or *bool, matching Type.
	Ref func(T) any
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key       string     `json:"key"`       // Table name: "employees"
	Label     string     `json:"label"`     // Display name: "Employees"
	Columns   []string   `json:"columns"`   // Field names in declaration order
	UniqueKey [][]string `json:"uniqueKey"` // Field name sets that must be unique
}

// Schema binds an entity type to its table layout.
type Schema[T Entity] struct {
	Info        TableInfo
	Fields      []Field[T]
	New         func() T
	DefaultSort []Sort
}

// Field returns the field with the given name (case-insensitive).
func (s *Schema[T]) Field(name string) (*Field[T], int, bool) {
	for i := range s.Fields {
		if strings.EqualFold(s.Fields[i].Name, name) {
			return &s.Fields[i], i, true
		}
	}
	return nil, -1, false
}

// Writable returns the fields a caller supplies, in declaration order.
func (s *Schema[T]) Writable() []Field[T] {
	out := make([]Field[T], 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.ReadOnly {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a detached copy of e.
func (s *Schema[T]) Clone(e T) T {
	c := s.New()
	for _, f := range s.Fields {
		_ = assign(f.Ref(c), fieldValue(f.Ref(e)), f.Type)
	}
	c.SetEntityID(e.EntityID())
	c.SetEntityVersion(e.EntityVersion())
	return c
}

// Validate checks required fields and returns a *ValidationError for the first problem.
func (s *Schema[T]) Validate(e T) error {
	var zero T
	if any(e) == any(zero) {
		return &ValidationError{Message: "entity is required"}
	}
	for _, f := range s.Fields {
		if !f.Required || f.ReadOnly {
			continue
		}
		switch v := fieldValue(f.Ref(e)).(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return &ValidationError{Field: f.Name, Message: "required field is empty"}
			}
		case time.Time:
			if v.IsZero() {
				return &ValidationError{Field: f.Name, Message: "required field is empty"}
			}
		}
	}
	return nil
}

// Value returns the current value of the named field as a comparable scalar.
func (s *Schema[T]) Value(e T, name string) (any, error) {
	f, _, ok := s.Field(name)
	if !ok {
		return nil, &ValidationError{Field: name, Message: "unknown field"}
	}
	return fieldValue(f.Ref(e)), nil
}

// ChangeKind identifies a staged mutation.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return fmt.Sprintf("change(%d)", int(k))
	}
}

// Change is a single staged mutation awaiting commit.
type Change[T Entity] struct {
	Kind   ChangeKind
	Entity T
}

// Page is a window of records plus the filtered count.
type Page[T Entity] struct {
	Items []T
	Total int
}
