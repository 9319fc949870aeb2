package sqlbuild

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/staffdesk/internal/core"
)

// Table renders the statements a SQL store needs for one schema.
//
// Every table has an "id" primary key and a "version" counter in addition to
// the schema's writable fields.
type Table[T core.Entity] struct {
	Schema  *core.Schema[T]
	Dialect Dialect

	writable []core.Field[T]
}

// NewTable prepares statements for schema in dialect d.
func NewTable[T core.Entity](schema *core.Schema[T], d Dialect) *Table[T] {
	return &Table[T]{Schema: schema, Dialect: d, writable: schema.Writable()}
}

func (t *Table[T]) name() string {
	return Quote(t.Schema.Info.Key)
}

func (t *Table[T]) writableColumns() []string {
	cols := make([]string, len(t.writable))
	for i, f := range t.writable {
		cols[i] = f.Column
	}
	return cols
}

// CreateStatements returns the DDL that creates the table and its indexes.
// Statements are idempotent.
func (t *Table[T]) CreateStatements() []string {
	defs := []string{
		fmt.Sprintf("%s %s", Quote("id"), t.Dialect.IDColumn),
		fmt.Sprintf("%s BIGINT NOT NULL DEFAULT 1", Quote("version")),
	}
	for _, f := range t.writable {
		defs = append(defs, fmt.Sprintf("%s %s", Quote(f.Column), t.Dialect.ColumnType(f.Type)))
	}
	for _, key := range t.Schema.Info.UniqueKey {
		cols := make([]string, 0, len(key))
		for _, name := range key {
			if f, _, ok := t.Schema.Field(name); ok {
				cols = append(cols, Quote(f.Column))
			}
		}
		if len(cols) > 0 {
			defs = append(defs, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
		}
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.name(), strings.Join(defs, ",\n\t")),
	}
	for _, s := range t.Schema.DefaultSort {
		f, _, ok := t.Schema.Field(s.Field)
		if !ok || f.Column == "id" {
			continue
		}
		idx := fmt.Sprintf("idx_%s_%s", t.Schema.Info.Key, f.Column)
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", Quote(idx), t.name(), Quote(f.Column)))
	}
	return stmts
}

// SelectColumns lists id, version and the writable columns in scan order.
func (t *Table[T]) SelectColumns() string {
	cols := append([]string{"id", "version"}, t.writableColumns()...)
	return strings.Join(QuoteAll(cols), ", ")
}

// SelectAll selects every row in id order.
func (t *Table[T]) SelectAll() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", t.SelectColumns(), t.name(), Quote("id"))
}

// SelectByID selects one row.
func (t *Table[T]) SelectByID() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", t.SelectColumns(), t.name(), Quote("id"), t.Dialect.Placeholder(1))
}

// Count counts every row.
func (t *Table[T]) Count() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", t.name())
}

// PlanQueries renders the count and page queries for plan. The page query's
// arguments extend the count query's.
func (t *Table[T]) PlanQueries(plan core.Plan) (countSQL, pageSQL string, countArgs, pageArgs []any) {
	wb := NewWhereBuilder(t.Dialect)
	wb.AddCond(plan.Where)
	where, args := wb.Build()

	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s%s", t.name(), where)
	countArgs = args

	pageSQL = fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		t.SelectColumns(),
		t.name(),
		where,
		OrderBy(t.Dialect, plan.Orders),
	)
	pageArgs = append([]any(nil), args...)
	if !plan.All {
		argIndex := wb.NextArgIndex()
		pageSQL += fmt.Sprintf(" LIMIT %s OFFSET %s", t.Dialect.Placeholder(argIndex), t.Dialect.Placeholder(argIndex+1))
		pageArgs = append(pageArgs, plan.Take, plan.Skip)
	}
	return countSQL, pageSQL, countArgs, pageArgs
}

// Insert inserts the writable columns and returns the new id.
func (t *Table[T]) Insert() string {
	cols := t.writableColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = t.Dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.name(),
		strings.Join(QuoteAll(cols), ", "),
		strings.Join(placeholders, ", "),
		Quote("id"),
	)
}

// Update rewrites the writable columns, bumps the version and returns it.
// With versioned set the row must also match the expected version.
func (t *Table[T]) Update(versioned bool) string {
	cols := t.writableColumns()
	sets := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = %s", Quote(c), t.Dialect.Placeholder(i+1)))
	}
	sets = append(sets, fmt.Sprintf("%s = %s + 1", Quote("version"), Quote("version")))

	where := fmt.Sprintf("%s = %s", Quote("id"), t.Dialect.Placeholder(len(cols)+1))
	if versioned {
		where += fmt.Sprintf(" AND %s = %s", Quote("version"), t.Dialect.Placeholder(len(cols)+2))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING %s",
		t.name(), strings.Join(sets, ", "), where, Quote("version"))
}

// Delete removes a row by id, and by version when versioned is set.
func (t *Table[T]) Delete(versioned bool) string {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", t.name(), Quote("id"), t.Dialect.Placeholder(1))
	if versioned {
		q += fmt.Sprintf(" AND %s = %s", Quote("version"), t.Dialect.Placeholder(2))
	}
	return q
}

// InsertArgs returns the writable field values of e.
func (t *Table[T]) InsertArgs(e T) []any {
	args := make([]any, len(t.writable))
	for i, f := range t.writable {
		args[i] = t.Dialect.Encode(f.Type, core.StoreValue(f.Ref(e)))
	}
	return args
}

// UpdateArgs returns the arguments for Update(versioned).
func (t *Table[T]) UpdateArgs(e T, versioned bool) []any {
	args := append(t.InsertArgs(e), e.EntityID())
	if versioned {
		args = append(args, e.EntityVersion())
	}
	return args
}

// DeleteArgs returns the arguments for Delete(versioned).
func (t *Table[T]) DeleteArgs(e T, versioned bool) []any {
	if versioned {
		return []any{e.EntityID(), e.EntityVersion()}
	}
	return []any{e.EntityID()}
}

// ScanTargets returns destinations matching SelectColumns.
func (t *Table[T]) ScanTargets() []any {
	n := 2 + len(t.writable)
	vals := make([]any, n)
	dest := make([]any, n)
	for i := range vals {
		dest[i] = &vals[i]
	}
	return dest
}

// Decode builds an entity from scanned targets.
func (t *Table[T]) Decode(dest []any) (T, error) {
	e := t.Schema.New()
	var zero T

	var id, version int64
	if err := core.Assign(&id, *(dest[0].(*any)), core.FieldNumeric); err != nil {
		return zero, fmt.Errorf("decode id: %w", err)
	}
	if err := core.Assign(&version, *(dest[1].(*any)), core.FieldNumeric); err != nil {
		return zero, fmt.Errorf("decode version: %w", err)
	}
	e.SetEntityID(id)
	e.SetEntityVersion(version)

	for i, f := range t.writable {
		v := *(dest[i+2].(*any))
		if d, ok := v.(pgtype.Date); ok {
			v = d.Time
		}
		if err := core.Assign(f.Ref(e), v, f.Type); err != nil {
			return zero, fmt.Errorf("decode %s: %w", f.Column, err)
		}
	}
	return e, nil
}
