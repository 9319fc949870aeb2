// Package sqlbuild turns compiled query plans and schemas into SQL text.
//
// Both SQL stores share it; a Dialect captures what differs between them
// (placeholders, column types, case-insensitive matching, value encoding).
package sqlbuild

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/staffdesk/internal/core"
)

// zeroDate is persisted for unset dates so date columns are never NULL.
const zeroDate = "0001-01-01"

// Dialect describes one SQL engine.
type Dialect struct {
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// Like is the case-insensitive pattern operator.
	Like string

	// TextCollate is appended to text columns in comparisons and ORDER BY so
	// ordering is byte-wise, matching in-memory evaluation.
	TextCollate string

	// IDColumn is the DDL for the primary key column.
	IDColumn string

	// ColumnType returns the DDL type and default for a field type.
	ColumnType func(ft core.FieldType) string

	// Cast is appended to placeholders compared against a field type.
	Cast func(ft core.FieldType) string

	// Encode converts a normalized value to a driver argument.
	Encode func(ft core.FieldType, v any) any
}

// SQLite stores dates as ISO text and booleans as integers.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(n int) string { return fmt.Sprintf("?%d", n) },
	Like:        "LIKE",
	IDColumn:    "INTEGER PRIMARY KEY AUTOINCREMENT",
	ColumnType: func(ft core.FieldType) string {
		switch ft {
		case core.FieldDate:
			return "TEXT NOT NULL DEFAULT '" + zeroDate + "'"
		case core.FieldNumeric:
			return "REAL NOT NULL DEFAULT 0"
		case core.FieldBool:
			return "INTEGER NOT NULL DEFAULT 0"
		default:
			return "TEXT NOT NULL DEFAULT ''"
		}
	},
	Cast: func(core.FieldType) string { return "" },
	Encode: func(ft core.FieldType, v any) any {
		switch x := v.(type) {
		case time.Time:
			if x.IsZero() {
				return zeroDate
			}
			return x.Format(core.DateLayout)
		case bool:
			if x {
				return int64(1)
			}
			return int64(0)
		}
		return v
	},
}

// Postgres uses native DATE/BOOLEAN columns and ILIKE.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Like:        "ILIKE",
	TextCollate: ` COLLATE "C"`,
	IDColumn:    "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
	ColumnType: func(ft core.FieldType) string {
		switch ft {
		case core.FieldDate:
			return "DATE NOT NULL DEFAULT '" + zeroDate + "'"
		case core.FieldNumeric:
			return "DOUBLE PRECISION NOT NULL DEFAULT 0"
		case core.FieldBool:
			return "BOOLEAN NOT NULL DEFAULT FALSE"
		default:
			return "TEXT NOT NULL DEFAULT ''"
		}
	},
	Cast: func(ft core.FieldType) string {
		switch ft {
		case core.FieldDate:
			return "::date"
		case core.FieldNumeric:
			return "::float8"
		}
		return ""
	},
	Encode: func(ft core.FieldType, v any) any {
		if t, ok := v.(time.Time); ok {
			if t.IsZero() {
				t = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
		return v
	},
}

// Quote quotes a SQL identifier to prevent injection.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteAll quotes every identifier in names.
func QuoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return quoted
}

// EscapeLike escapes LIKE wildcards so s matches literally with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
