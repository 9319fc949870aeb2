package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
	"github.com/JonMunkholm/staffdesk/internal/store/memstore"
)

type Employee = tables.Employee

var surnames = []string{
	"Smith", "Jones", "Brown", "Taylor", "Wilson", "Evans", "Thomas", "Johnson",
	"Roberts", "Walker", "Wright", "Robinson", "Thompson", "White", "Hughes",
	"Edwards", "Green", "Hall", "Wood", "Harris", "Lewis", "Martin", "Jackson",
	"Clarke", "Clark", "Turner", "Hill", "Scott", "Cooper", "Morris",
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newEmployee(payroll, forenames, surname string) *Employee {
	return &Employee{
		PayrollNumber: payroll,
		Forenames:     forenames,
		Surname:       surname,
	}
}

// newStore returns an empty in-memory employee store.
func newStore() *memstore.Store[*Employee] {
	return memstore.New(tables.Employees())
}

// seedStore commits employees through a fresh repository.
func seedStore(t *testing.T, store core.Store[*Employee], emps ...*Employee) {
	t.Helper()
	repo := core.NewRepository[*Employee](store, tables.Employees())
	for _, e := range emps {
		repo.Add(e)
	}
	ok, err := repo.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(emps) > 0, ok)
}

// fixture builds one employee per surname, with dates spread across decades.
func fixture() []*Employee {
	out := make([]*Employee, len(surnames))
	for i, s := range surnames {
		e := newEmployee(fmt.Sprintf("P%03d", i+1), fmt.Sprintf("Name%d", i+1), s)
		e.DateOfBirth = date(1950+i, time.Month(i%12+1), i%28+1)
		e.StartDate = date(2000+i%20, 1, 1)
		e.Postcode = fmt.Sprintf("AB%d 1CD", i%5)
		out[i] = e
	}
	return out
}

// failingStore behaves like a memstore but rejects every Apply.
type failingStore struct {
	*memstore.Store[*Employee]
	applied int
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Apply(ctx context.Context, changes []core.Change[*Employee]) (int64, error) {
	f.applied++
	return 0, errDiskFull
}

func surnamesOf(emps []*Employee) []string {
	out := make([]string, len(emps))
	for i, e := range emps {
		out[i] = e.Surname
	}
	return out
}
