package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const employeesCSV = "Personnel_Records.Payroll_Number,Personnel_Records.Forenames,Personnel_Records.Surname," +
	"Personnel_Records.Date_of_Birth,Personnel_Records.Telephone,Personnel_Records.Mobile," +
	"Personnel_Records.Address,Personnel_Records.Address_2,Personnel_Records.Postcode," +
	"Personnel_Records.EMail_Home,Personnel_Records.Start_Date\n" +
	"COOP08,John,William,26/01/1955,12345678,987654231,12 Foreman road,London,GU12 6JW,nomadic20@hotmail.co.uk,18/04/2013\n" +
	"JACK13,Jerry,Jackson,11/5/1974,2050508,6987457,115 Spinney Road,Luton,LU33DF,gerry.jackson@bt.com,18/04/2013\n"

// run executes staffctl against a SQLite database in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config", "", "--driver", "sqlite", "--db", filepath.Join(dir, "staff.db")))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestImportThenQuery(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "staff.csv", employeesCSV)

	out, err := run(t, dir, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 rows")

	out, err = run(t, dir, "query")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list), out)
	require.Len(t, list, 2)
	assert.Equal(t, "Jackson", list[0]["surname"])
	assert.Equal(t, "William", list[1]["surname"])
	assert.Equal(t, "1955-01-26", list[1]["dateOfBirth"])

	out, err = run(t, dir, "query", "--filters", `{"filter":{"field":"postcode","operator":"startswith","value":"gu"}}`)
	require.NoError(t, err)
	var page struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page), out)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "COOP08", page.Data[0]["payrollNumber"])
}

func TestImport_BadDateAbortsUnlessSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", employeesCSV+
		"BAD001,Bad,Date,31/31/1990,,,,,,,\n")

	_, err := run(t, dir, "import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")

	out, err := run(t, dir, "import", path, "--skip-invalid")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 rows")
}

func TestImport_MissingFileImportsNothing(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "import", filepath.Join(dir, "absent.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 rows")
}

func TestQuery_InvalidRequest(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "query", "--filters", `{"sort":[{"field":"salary"}]}`)
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seed.yaml", `
employees:
  - payrollNumber: P1
    forenames: Ann
    surname: Smith
    dateOfBirth: 1980-02-03
`)

	out, err := run(t, dir, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 employees")

	out, err = run(t, dir, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 employees")
}

func TestImport_DryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "staff.csv", employeesCSV+"short,row\n")

	out, err := run(t, dir, "import", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "3 rows read, 2 would be imported, 1 skipped, 0 invalid")

	out, err = run(t, dir, "query")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
