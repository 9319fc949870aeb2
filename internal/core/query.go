package core

// query.go defines the grid request/response shapes.
//
// A Request arrives untyped (usually JSON from a data grid), is validated and
// compiled against a Schema into a Plan, and the Plan is executed either in
// memory (ExecutePlan) or natively by a store (PlanRunner).

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Default paging values applied when a request omits them.
const (
	DefaultTake = 10
	DefaultSkip = 0
)

// Request is a paging/sorting/filtering request for a single table.
type Request struct {
	Take   int     `json:"take"`
	Skip   int     `json:"skip"`
	Sort   []Sort  `json:"sort,omitempty"`
	Filter *Filter `json:"filter,omitempty"`
	All    bool    `json:"all"`
}

// NewRequest returns a request with default paging.
func NewRequest() Request {
	return Request{Take: DefaultTake, Skip: DefaultSkip}
}

// UnmarshalJSON applies defaults for absent fields.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	req := plain(NewRequest())
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	*r = Request(req)
	return nil
}

// ParseRequest decodes a JSON request. Empty input yields the defaults.
func ParseRequest(data []byte) (Request, error) {
	req := NewRequest()
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, &ValidationError{Message: "malformed request: " + err.Error()}
	}
	return req, nil
}

// Sort is a single ordering key.
type Sort struct {
	Field string `json:"field"`
	Dir   string `json:"dir"` // "asc" or "desc"
}

// Filter is a node of the filter tree: either a leaf condition
// (Field/Operator/Value) or a composite (Logic/Filters).
type Filter struct {
	Field    string   `json:"field,omitempty"`
	Operator string   `json:"operator,omitempty"`
	Value    any      `json:"value,omitempty"`
	Logic    string   `json:"logic,omitempty"`
	Filters  []Filter `json:"filters,omitempty"`
}

// IsLeaf reports whether the node is a leaf condition.
func (f *Filter) IsLeaf() bool {
	return f.Field != ""
}

// IsEmpty reports whether the node carries no condition at all.
func (f *Filter) IsEmpty() bool {
	return f == nil || (f.Field == "" && len(f.Filters) == 0)
}

// Flatten returns every leaf in depth-first declaration order.
func (f *Filter) Flatten() []Filter {
	if f == nil {
		return nil
	}
	if f.IsLeaf() {
		return []Filter{*f}
	}
	var out []Filter
	for i := range f.Filters {
		out = append(out, f.Filters[i].Flatten()...)
	}
	return out
}

// Operator is a leaf comparison operator.
type Operator string

const (
	OpEquals      Operator = "eq"
	OpNotEquals   Operator = "neq"
	OpContains    Operator = "contains"
	OpNotContains Operator = "doesnotcontain"
	OpStartsWith  Operator = "startswith"
	OpEndsWith    Operator = "endswith"
	OpGreater     Operator = "gt"
	OpGreaterEq   Operator = "gte"
	OpLess        Operator = "lt"
	OpLessEq      Operator = "lte"
	OpIsEmpty     Operator = "isempty"
	OpIsNotEmpty  Operator = "isnotempty"
)

// operatorAliases maps accepted spellings to canonical operators.
var operatorAliases = map[string]Operator{
	"eq":             OpEquals,
	"equals":         OpEquals,
	"neq":            OpNotEquals,
	"ne":             OpNotEquals,
	"contains":       OpContains,
	"doesnotcontain": OpNotContains,
	"startswith":     OpStartsWith,
	"starts":         OpStartsWith,
	"endswith":       OpEndsWith,
	"ends":           OpEndsWith,
	"gt":             OpGreater,
	"gte":            OpGreaterEq,
	"lt":             OpLess,
	"lte":            OpLessEq,
	"isempty":        OpIsEmpty,
	"isnotempty":     OpIsNotEmpty,
}

// textOnly reports whether the operator only applies to text fields.
func (op Operator) textOnly() bool {
	switch op {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// unary reports whether the operator ignores the value.
func (op Operator) unary() bool {
	return op == OpIsEmpty || op == OpIsNotEmpty
}

func parseOperator(s string) (Operator, bool) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Logic joins the children of a composite condition.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Result is a page of data plus the filtered count, shaped for data grids.
type Result[T Entity] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}
