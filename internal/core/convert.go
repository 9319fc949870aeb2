package core

// convert.go moves values between entity fields, stores and filter requests.
//
// Field pointers are one of *string, *time.Time, *int64, *float64 or *bool.
// Values read out of them are normalized so comparisons never need to know
// the concrete Go type:
//   - text    -> string
//   - date    -> time.Time truncated to the UTC calendar day
//   - numeric -> float64
//   - bool    -> bool
//
// Stores hand back whatever their driver produced (string, []byte, int64,
// float64, time.Time); assign converts those into the field pointer.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO layout used to persist and compare date fields.
const DateLayout = "2006-01-02"

// requestDateLayouts are accepted for date values in filter requests.
var requestDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
	"02/1/2006",
}

// fieldValue dereferences a field pointer into its normalized value.
func fieldValue(ref any) any {
	switch p := ref.(type) {
	case *string:
		return *p
	case *time.Time:
		return Day(*p)
	case *int64:
		return float64(*p)
	case *float64:
		return *p
	case *bool:
		return *p
	default:
		return nil
	}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StoreValue returns the value of a field pointer in the form stores persist:
// text as string, dates as time.Time, numbers as int64/float64, bools as bool.
func StoreValue(ref any) any {
	switch p := ref.(type) {
	case *string:
		return *p
	case *time.Time:
		return Day(*p)
	case *int64:
		return *p
	case *float64:
		return *p
	case *bool:
		return *p
	default:
		return nil
	}
}

// Assign writes a driver value into a field pointer, converting as needed.
// Nil values reset the field to its zero value.
func Assign(ref any, v any, ft FieldType) error {
	return assign(ref, v, ft)
}

func assign(ref any, v any, ft FieldType) error {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch p := ref.(type) {
	case *string:
		switch x := v.(type) {
		case nil:
			*p = ""
		case string:
			*p = x
		default:
			*p = fmt.Sprint(x)
		}

	case *time.Time:
		switch x := v.(type) {
		case nil:
			*p = time.Time{}
		case time.Time:
			*p = Day(x)
		case string:
			if x == "" {
				*p = time.Time{}
				return nil
			}
			t, err := ParseDate(x)
			if err != nil {
				return fmt.Errorf("invalid date %q", x)
			}
			*p = t
		default:
			return fmt.Errorf("cannot assign %T to date field", v)
		}

	case *int64:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		*p = int64(f)

	case *float64:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		*p = f

	case *bool:
		switch x := v.(type) {
		case nil:
			*p = false
		case bool:
			*p = x
		case int64:
			*p = x != 0
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return fmt.Errorf("invalid bool %q", x)
			}
			*p = b
		default:
			return fmt.Errorf("cannot assign %T to bool field", v)
		}

	default:
		return fmt.Errorf("unsupported field pointer %T for %s field", ref, fieldTypeName(ft))
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("invalid number %v", v)
	}
}

// ParseDate accepts ISO dates/datetimes and the import layout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range requestDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// coerceFilterValue converts an untyped request value to the field's type.
func coerceFilterValue(raw any, ft FieldType) (any, error) {
	switch ft {
	case FieldText:
		switch x := raw.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(x), nil
		case nil:
			return "", nil
		}

	case FieldDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a date string, got %T", raw)
		}
		return ParseDate(s)

	case FieldNumeric:
		switch x := raw.(type) {
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("invalid number %v", x)
			}
			return x, nil
		case string:
			return toFloat(x)
		}

	case FieldBool:
		switch x := raw.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("invalid bool %q", x)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("value of type %T is not a valid %s", raw, fieldTypeName(ft))
}

// fieldTypeName returns a human-readable name for a field type.
func fieldTypeName(ft FieldType) string {
	switch ft {
	case FieldText:
		return "text"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	default:
		return "value"
	}
}

// CleanCell trims whitespace and surrounding quotes left by spreadsheet exports.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}
