package core

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Cond is a compiled, typed filter condition.
// Composite nodes have Logic and Children; leaves have Field/Op/Value.
type Cond struct {
	Logic    Logic
	Children []*Cond

	Field  string    // Canonical field name
	Column string    // Database column
	Type   FieldType // Declared field type
	Op     Operator
	Value  any // string, time.Time, float64 or bool matching Type

	index int // position in Schema.Fields
}

// IsLeaf reports whether c is a leaf condition.
func (c *Cond) IsLeaf() bool {
	return c.Field != ""
}

// Leaves returns the leaf conditions in depth-first order.
func (c *Cond) Leaves() []*Cond {
	if c == nil {
		return nil
	}
	if c.IsLeaf() {
		return []*Cond{c}
	}
	var out []*Cond
	for _, ch := range c.Children {
		out = append(out, ch.Leaves()...)
	}
	return out
}

// Order is a compiled sort key.
type Order struct {
	Field  string
	Column string
	Type   FieldType
	Desc   bool

	index int
}

// Plan is a validated query execution plan.
type Plan struct {
	Where  *Cond // nil means no filter
	Orders []Order
	Skip   int
	Take   int
	All    bool
}

// Compile validates req against schema and builds the execution plan.
func Compile[T Entity](schema *Schema[T], req Request) (Plan, error) {
	if req.Skip < 0 {
		return Plan{}, &ValidationError{Field: "skip", Value: fmt.Sprint(req.Skip), Message: "must be non-negative"}
	}
	if req.Take < 0 {
		return Plan{}, &ValidationError{Field: "take", Value: fmt.Sprint(req.Take), Message: "must be non-negative"}
	}

	plan := Plan{Skip: req.Skip, Take: req.Take, All: req.All}

	if !req.Filter.IsEmpty() {
		where, err := compileFilter(schema, req.Filter)
		if err != nil {
			return Plan{}, err
		}
		plan.Where = where
	}

	orders, err := compileSorts(schema, req.Sort)
	if err != nil {
		return Plan{}, err
	}
	plan.Orders = orders

	return plan, nil
}

func compileFilter[T Entity](schema *Schema[T], f *Filter) (*Cond, error) {
	if f.IsLeaf() {
		if len(f.Filters) > 0 {
			return nil, &ValidationError{Field: f.Field, Message: "a condition cannot have nested filters"}
		}
		return compileLeaf(schema, f)
	}

	if len(f.Filters) == 0 {
		return nil, &ValidationError{Message: "filter group has no conditions"}
	}

	logic := LogicAnd
	switch strings.ToLower(strings.TrimSpace(f.Logic)) {
	case "", "and":
	case "or":
		logic = LogicOr
	default:
		return nil, &ValidationError{Field: "logic", Value: f.Logic, Message: "must be and/or"}
	}

	c := &Cond{Logic: logic, Children: make([]*Cond, 0, len(f.Filters))}
	for i := range f.Filters {
		child, err := compileFilter(schema, &f.Filters[i])
		if err != nil {
			return nil, err
		}
		c.Children = append(c.Children, child)
	}
	return c, nil
}

func compileLeaf[T Entity](schema *Schema[T], f *Filter) (*Cond, error) {
	field, idx, ok := schema.Field(f.Field)
	if !ok {
		return nil, &ValidationError{Field: f.Field, Message: "unknown field"}
	}

	op, ok := parseOperator(f.Operator)
	if !ok {
		return nil, &ValidationError{Field: field.Name, Value: f.Operator, Message: "unknown operator"}
	}
	if op.textOnly() && field.Type != FieldText {
		return nil, &ValidationError{Field: field.Name, Value: string(op), Message: "operator requires a text field"}
	}

	c := &Cond{
		Field:  field.Name,
		Column: field.Column,
		Type:   field.Type,
		Op:     op,
		index:  idx,
	}
	if op.unary() {
		return c, nil
	}

	v, err := coerceFilterValue(f.Value, field.Type)
	if err != nil {
		return nil, &ValidationError{Field: field.Name, Value: fmt.Sprint(f.Value), Message: err.Error()}
	}
	c.Value = v
	return c, nil
}

func compileSorts[T Entity](schema *Schema[T], sorts []Sort) ([]Order, error) {
	var orders []Order
	seen := make(map[int]bool)
	for _, s := range sorts {
		field, idx, ok := schema.Field(s.Field)
		if !ok {
			return nil, &ValidationError{Field: s.Field, Message: "unknown sort field"}
		}

		var desc bool
		switch strings.ToLower(strings.TrimSpace(s.Dir)) {
		case "", "asc":
		case "desc":
			desc = true
		default:
			return nil, &ValidationError{Field: field.Name, Value: s.Dir, Message: "sort direction must be asc/desc"}
		}

		// First occurrence wins; later entries for the same field are no-ops.
		if seen[idx] {
			continue
		}
		seen[idx] = true

		orders = append(orders, Order{
			Field:  field.Name,
			Column: field.Column,
			Type:   field.Type,
			Desc:   desc,
			index:  idx,
		})
	}
	return orders, nil
}

// Predicate builds a closure evaluating c against an entity.
func Predicate[T Entity](schema *Schema[T], c *Cond) func(T) bool {
	if c == nil {
		return func(T) bool { return true }
	}

	if !c.IsLeaf() {
		preds := make([]func(T) bool, len(c.Children))
		for i, ch := range c.Children {
			preds[i] = Predicate(schema, ch)
		}
		if c.Logic == LogicOr {
			return func(e T) bool {
				for _, p := range preds {
					if p(e) {
						return true
					}
				}
				return false
			}
		}
		return func(e T) bool {
			for _, p := range preds {
				if !p(e) {
					return false
				}
			}
			return true
		}
	}

	ref := schema.Fields[c.index].Ref
	switch c.Op {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		// Casers are stateful; each predicate owns one.
		folder := cases.Fold()
		needle := folder.String(c.Value.(string))
		op := c.Op
		return func(e T) bool {
			hay := folder.String(fieldValue(ref(e)).(string))
			switch op {
			case OpContains:
				return strings.Contains(hay, needle)
			case OpNotContains:
				return !strings.Contains(hay, needle)
			case OpStartsWith:
				return strings.HasPrefix(hay, needle)
			default:
				return strings.HasSuffix(hay, needle)
			}
		}
	case OpIsEmpty:
		return func(e T) bool { return fieldValue(ref(e)).(string) == "" }
	case OpIsNotEmpty:
		return func(e T) bool { return fieldValue(ref(e)).(string) != "" }
	}

	want := c.Value
	op := c.Op
	return func(e T) bool {
		cmp := compareValues(fieldValue(ref(e)), want)
		switch op {
		case OpEquals:
			return cmp == 0
		case OpNotEquals:
			return cmp != 0
		case OpGreater:
			return cmp > 0
		case OpGreaterEq:
			return cmp >= 0
		case OpLess:
			return cmp < 0
		case OpLessEq:
			return cmp <= 0
		}
		return false
	}
}

// compareValues orders two normalized values of the same field type.
func compareValues(a, b any) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		return x.Compare(b.(time.Time))
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}
