package sqlbuild

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/staffdesk/internal/core"
)

// WhereBuilder accumulates a parameterized WHERE clause.
type WhereBuilder struct {
	d          Dialect
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates a builder whose first placeholder is 1.
func NewWhereBuilder(d Dialect) *WhereBuilder {
	return &WhereBuilder{d: d, argIndex: 1}
}

// Bind registers a value and returns its placeholder.
func (wb *WhereBuilder) Bind(v any) string {
	p := wb.d.Placeholder(wb.argIndex)
	wb.args = append(wb.args, v)
	wb.argIndex++
	return p
}

// NextArgIndex returns the next placeholder number.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Add appends "column = value".
func (wb *WhereBuilder) Add(column string, value any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = %s", Quote(column), wb.Bind(value)))
}

// AddCond appends a compiled filter tree. A nil cond adds nothing.
func (wb *WhereBuilder) AddCond(c *core.Cond) {
	if c == nil {
		return
	}
	wb.conditions = append(wb.conditions, wb.cond(c))
}

// Build returns " WHERE ..." (or "") and the bound arguments.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", wb.args
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func (wb *WhereBuilder) cond(c *core.Cond) string {
	if !c.IsLeaf() {
		parts := make([]string, len(c.Children))
		for i, ch := range c.Children {
			parts[i] = wb.cond(ch)
		}
		joiner := " AND "
		if c.Logic == core.LogicOr {
			joiner = " OR "
		}
		return "(" + strings.Join(parts, joiner) + ")"
	}

	col := Quote(c.Column)

	switch c.Op {
	case core.OpIsEmpty:
		return fmt.Sprintf("%s = ''", col)
	case core.OpIsNotEmpty:
		return fmt.Sprintf("%s <> ''", col)
	case core.OpContains, core.OpNotContains, core.OpStartsWith, core.OpEndsWith:
		s := EscapeLike(c.Value.(string))
		pattern := "%" + s + "%"
		not := ""
		switch c.Op {
		case core.OpStartsWith:
			pattern = s + "%"
		case core.OpEndsWith:
			pattern = "%" + s
		case core.OpNotContains:
			not = "NOT "
		}
		return fmt.Sprintf(`%s %s%s %s ESCAPE '\'`, col, not, wb.d.Like, wb.Bind(pattern))
	}

	if c.Type == core.FieldText {
		col += wb.d.TextCollate
	}
	arg := wb.Bind(wb.d.Encode(c.Type, c.Value)) + wb.d.Cast(c.Type)

	var op string
	switch c.Op {
	case core.OpEquals:
		op = "="
	case core.OpNotEquals:
		op = "<>"
	case core.OpGreater:
		op = ">"
	case core.OpGreaterEq:
		op = ">="
	case core.OpLess:
		op = "<"
	case core.OpLessEq:
		op = "<="
	}
	return fmt.Sprintf("%s %s %s", col, op, arg)
}

// OrderBy renders the ORDER BY list for orders. Unless the orders already
// reach the unique id column, "id ASC" is appended as the final tiebreaker.
func OrderBy(d Dialect, orders []core.Order) string {
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		col := Quote(o.Column)
		if o.Type == core.FieldText {
			col += d.TextCollate
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
		if o.Column == "id" {
			return strings.Join(parts, ", ")
		}
	}
	parts = append(parts, Quote("id")+" ASC")
	return strings.Join(parts, ", ")
}
