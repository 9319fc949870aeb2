package core

import (
	"context"
	"sort"
)

// PlanRunner is implemented by stores that can execute a Plan natively
// (WHERE / ORDER BY / LIMIT in SQL) instead of loading every row.
type PlanRunner[T Entity] interface {
	Query(ctx context.Context, plan Plan) (Page[T], error)
}

// Source is anything the query engine can read a full item set from.
type Source[T Entity] interface {
	Scan(ctx context.Context) ([]T, error)
}

// ExecutePlan runs plan over items in memory.
// Order of operations: filter, count, sort, page.
func ExecutePlan[T Entity](schema *Schema[T], items []T, plan Plan) Page[T] {
	pred := Predicate(schema, plan.Where)

	matched := make([]T, 0, len(items))
	for _, e := range items {
		if pred(e) {
			matched = append(matched, e)
		}
	}
	total := len(matched)

	SortItems(schema, matched, plan.Orders)

	return Page[T]{Items: window(matched, plan), Total: total}
}

// SortItems sorts items in place by orders, falling back to id ascending.
func SortItems[T Entity](schema *Schema[T], items []T, orders []Order) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, o := range orders {
			ref := schema.Fields[o.index].Ref
			c := compareValues(fieldValue(ref(items[i])), fieldValue(ref(items[j])))
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return items[i].EntityID() < items[j].EntityID()
	})
}

func window[T Entity](items []T, plan Plan) []T {
	if plan.All {
		return items
	}
	if plan.Skip >= len(items) || plan.Take == 0 {
		return []T{}
	}
	end := len(items)
	if plan.Take < end-plan.Skip {
		end = plan.Skip + plan.Take
	}
	return items[plan.Skip:end]
}

// ToResult compiles req and executes it against source.
// Sources implementing PlanRunner execute the plan themselves.
func ToResult[T Entity](ctx context.Context, source Source[T], schema *Schema[T], req Request) (*Result[T], error) {
	plan, err := Compile(schema, req)
	if err != nil {
		return nil, err
	}

	var page Page[T]
	if runner, ok := source.(PlanRunner[T]); ok {
		page, err = runner.Query(ctx, plan)
		if err != nil {
			return nil, err
		}
	} else {
		items, err := source.Scan(ctx)
		if err != nil {
			return nil, err
		}
		page = ExecutePlan(schema, items, plan)
	}

	data := page.Items
	if data == nil {
		data = []T{}
	}
	return &Result[T]{Data: data, Total: page.Total}, nil
}
