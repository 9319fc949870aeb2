package sqlbuild

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
)

func compile(t *testing.T, req core.Request) core.Plan {
	t.Helper()
	plan, err := core.Compile(tables.Employees(), req)
	require.NoError(t, err)
	return plan
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"surname"`, Quote("surname"))
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now \\ then`, EscapeLike(`50% off_now \ then`))
}

func TestPlanQueries_SQLite(t *testing.T) {
	table := NewTable(tables.Employees(), SQLite)
	plan := compile(t, core.Request{
		Take: 10,
		Skip: 20,
		Sort: []core.Sort{{Field: "surname", Dir: "desc"}},
		Filter: &core.Filter{Logic: "and", Filters: []core.Filter{
			{Field: "surname", Operator: "startswith", Value: "Mc_"},
			{Field: "dateOfBirth", Operator: "gte", Value: "1970-01-01"},
		}},
	})

	countSQL, pageSQL, countArgs, pageArgs := table.PlanQueries(plan)

	assert.Equal(t,
		`SELECT COUNT(*) FROM "employees" WHERE ("surname" LIKE ?1 ESCAPE '\' AND "date_of_birth" >= ?2)`,
		countSQL)
	assert.Equal(t, []any{`Mc\_%`, "1970-01-01"}, countArgs)

	assert.True(t, strings.HasSuffix(pageSQL,
		`WHERE ("surname" LIKE ?1 ESCAPE '\' AND "date_of_birth" >= ?2) ORDER BY "surname" DESC, "id" ASC LIMIT ?3 OFFSET ?4`),
		pageSQL)
	assert.Equal(t, []any{`Mc\_%`, "1970-01-01", 10, 20}, pageArgs)
}

func TestPlanQueries_Postgres(t *testing.T) {
	table := NewTable(tables.Employees(), Postgres)
	plan := compile(t, core.Request{
		Take: 5,
		Filter: &core.Filter{Logic: "or", Filters: []core.Filter{
			{Field: "surname", Operator: "eq", Value: "Smith"},
			{Field: "startDate", Operator: "lt", Value: "2001-02-03"},
			{Field: "email", Operator: "isempty"},
		}},
	})

	countSQL, pageSQL, countArgs, pageArgs := table.PlanQueries(plan)

	assert.Equal(t,
		`SELECT COUNT(*) FROM "employees" WHERE ("surname" COLLATE "C" = $1 OR "start_date" < $2::date OR "email" = '')`,
		countSQL)
	require.Len(t, countArgs, 2)
	assert.Equal(t, "Smith", countArgs[0])
	assert.Equal(t, pgtype.Date{Time: time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC), Valid: true}, countArgs[1])

	assert.Contains(t, pageSQL, `ORDER BY "id" ASC LIMIT $3 OFFSET $4`)
	assert.Len(t, pageArgs, 4)
}

func TestPlanQueries_AllHasNoLimit(t *testing.T) {
	table := NewTable(tables.Employees(), SQLite)
	_, pageSQL, _, pageArgs := table.PlanQueries(compile(t, core.Request{All: true}))
	assert.NotContains(t, pageSQL, "LIMIT")
	assert.Empty(t, pageArgs)
}

func TestOrderBy(t *testing.T) {
	plan := compile(t, core.Request{Sort: []core.Sort{
		{Field: "postcode"},
		{Field: "id", Dir: "desc"},
		{Field: "surname"},
	}})
	assert.Equal(t, `"postcode" ASC, "id" DESC`, OrderBy(SQLite, plan.Orders))
	assert.Equal(t, `"postcode" COLLATE "C" ASC, "id" DESC`, OrderBy(Postgres, plan.Orders))
	assert.Equal(t, `"id" ASC`, OrderBy(SQLite, nil))
}

func TestWhereBuilder_NotContains(t *testing.T) {
	plan := compile(t, core.Request{Filter: &core.Filter{Field: "address", Operator: "doesnotcontain", Value: "road"}})
	wb := NewWhereBuilder(Postgres)
	wb.AddCond(plan.Where)
	wb.Add("version", 3)
	where, args := wb.Build()
	assert.Equal(t, ` WHERE "address" NOT ILIKE $1 ESCAPE '\' AND "version" = $2`, where)
	assert.Equal(t, []any{"%road%", 3}, args)
	assert.Equal(t, 3, wb.NextArgIndex())
}

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder(SQLite)
	wb.AddCond(nil)
	where, args := wb.Build()
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestWriteStatements(t *testing.T) {
	table := NewTable(tables.Employees(), SQLite)

	insert := table.Insert()
	assert.True(t, strings.HasPrefix(insert, `INSERT INTO "employees" ("payroll_number", "forenames", "surname", "date_of_birth"`))
	assert.True(t, strings.HasSuffix(insert, `?11) RETURNING "id"`))

	assert.True(t, strings.HasSuffix(table.Update(true), `WHERE "id" = ?12 AND "version" = ?13 RETURNING "version"`))
	assert.True(t, strings.HasSuffix(table.Update(false), `WHERE "id" = ?12 RETURNING "version"`))
	assert.Equal(t, `DELETE FROM "employees" WHERE "id" = $1 AND "version" = $2`, NewTable(tables.Employees(), Postgres).Delete(true))

	e := &tables.Employee{PayrollNumber: "P1", Forenames: "Ada", Surname: "Lovelace"}
	e.ID, e.Version = 7, 2
	args := table.UpdateArgs(e, true)
	require.Len(t, args, 13)
	assert.Equal(t, "P1", args[0])
	assert.Equal(t, "0001-01-01", args[3], "zero dates are stored as the sentinel")
	assert.Equal(t, int64(7), args[11])
	assert.Equal(t, int64(2), args[12])
	assert.Equal(t, []any{int64(7)}, table.DeleteArgs(e, false))
}

func TestCreateStatements(t *testing.T) {
	stmts := NewTable(tables.Employees(), Postgres).CreateStatements()
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `"id" BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY`)
	assert.Contains(t, stmts[0], `"date_of_birth" DATE NOT NULL DEFAULT '0001-01-01'`)
	assert.Contains(t, stmts[0], `UNIQUE ("payroll_number")`)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "idx_employees_surname" ON "employees" ("surname")`, stmts[1])
}

func TestDecode(t *testing.T) {
	table := NewTable(tables.Employees(), SQLite)
	dest := table.ScanTargets()
	values := []any{int64(3), int64(1), "P3", "Ada", "Lovelace", "1815-12-10", "", "", "", "", "", "", "0001-01-01"}
	require.Len(t, dest, len(values))
	for i, v := range values {
		*(dest[i].(*any)) = v
	}

	e, err := table.Decode(dest)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.ID)
	assert.Equal(t, "Lovelace", e.Surname)
	assert.True(t, e.DateOfBirth.Equal(time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, e.StartDate.IsZero())
}
