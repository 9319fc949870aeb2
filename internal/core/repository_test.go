package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
)

func newRepo(store core.Store[*Employee]) *core.Repository[*Employee] {
	return core.NewRepository[*Employee](store, tables.Employees())
}

func TestRepository_AddIsProvisionalUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	repo := newRepo(store)

	e := repo.Add(newEmployee("P1", "Ada", "Lovelace"))
	assert.Zero(t, e.ID, "id must stay provisional before commit")
	assert.Equal(t, 1, repo.Pending())

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "staged changes must not reach the store")

	ok, err := repo.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotZero(t, e.ID, "commit writes the store id into the same instance")
	assert.Equal(t, int64(1), e.Version)
	assert.Zero(t, repo.Pending())

	got, err := repo.GetSingle(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", got.Surname)
}

func TestRepository_CommitNothingStaged(t *testing.T) {
	ok, err := newRepo(newStore()).Commit(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_CommitFailureConsumesStagedSet(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: newStore()}
	repo := newRepo(store)

	e := repo.Add(newEmployee("P1", "Ada", "Lovelace"))
	ok, err := repo.Commit(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, errDiskFull))
	assert.True(t, errors.Is(err, core.ErrStore))
	assert.Zero(t, e.ID)
	assert.Zero(t, repo.Pending())

	// A second commit has nothing left to flush.
	ok, err = repo.Commit(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, store.applied)
}

func TestRepository_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	seedStore(t, store, newEmployee("P1", "Ada", "Lovelace"))

	repo := newRepo(store)
	repo.Add(newEmployee("P2", "Alan", "Turing"))
	repo.Add(newEmployee("P1", "Grace", "Hopper")) // duplicate payroll number
	_, err := repo.Commit(ctx)
	require.Error(t, err)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lovelace"}, surnamesOf(all), "no part of a failed batch may persist")
}

func TestRepository_EditAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	a := newEmployee("P1", "Ada", "Lovelace")
	b := newEmployee("P2", "Alan", "Turing")
	seedStore(t, store, a, b)

	repo := newRepo(store)
	edited, err := repo.GetSingle(ctx, a.ID)
	require.NoError(t, err)
	edited.Surname = "King"
	repo.Edit(edited)

	gone, err := repo.GetSingle(ctx, b.ID)
	require.NoError(t, err)
	repo.Delete(gone)

	ok, err := repo.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), edited.Version)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"King"}, surnamesOf(all))

	_, err = repo.GetSingle(ctx, b.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestRepository_EditStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	a := newEmployee("P1", "Ada", "Lovelace")
	seedStore(t, store, a)

	first, err := newRepo(store).GetSingle(ctx, a.ID)
	require.NoError(t, err)
	second, err := newRepo(store).GetSingle(ctx, a.ID)
	require.NoError(t, err)

	r1 := newRepo(store)
	first.Surname = "Byron"
	r1.Edit(first)
	_, err = r1.Commit(ctx)
	require.NoError(t, err)

	r2 := newRepo(store)
	second.Surname = "King"
	r2.Edit(second)
	_, err = r2.Commit(ctx)
	require.Error(t, err)
	assert.True(t, core.IsConcurrency(err))
}

func TestRepository_Discard(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	repo := newRepo(store)

	repo.Add(newEmployee("P1", "Ada", "Lovelace"))
	repo.Discard()
	assert.Zero(t, repo.Pending())

	ok, err := repo.Commit(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_TrackedQueryReturnsSameInstance(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	seedStore(t, store, fixture()...)

	repo := newRepo(store)
	tracked := repo.GetAllAsQueryableTrack()
	require.True(t, tracked.Tracked())

	first, err := tracked.Scan(ctx)
	require.NoError(t, err)
	second, err := tracked.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}

	res, err := tracked.ToResult(ctx, core.Request{Take: 1, Sort: []core.Sort{{Field: "id"}}})
	require.NoError(t, err)
	assert.Same(t, first[0], res.Data[0])

	// Untracked reads always hand out fresh copies.
	untracked := repo.GetAllAsQueryable()
	u1, err := untracked.Scan(ctx)
	require.NoError(t, err)
	u2, err := untracked.Scan(ctx)
	require.NoError(t, err)
	assert.NotSame(t, u1[0], u2[0])
	assert.NotSame(t, first[0], u1[0])
}

func TestRepository_TrackedEditThroughSameInstance(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	seedStore(t, store, newEmployee("P1", "Ada", "Lovelace"))

	repo := newRepo(store)
	items, err := repo.GetAllAsQueryableTrack().List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	items[0].Postcode = "NW1 2DB"
	repo.Edit(items[0])
	_, err = repo.Commit(ctx)
	require.NoError(t, err)

	again, err := repo.GetAllAsQueryableTrack().List(ctx)
	require.NoError(t, err)
	assert.Same(t, items[0], again[0])
	assert.Equal(t, int64(2), again[0].Version)
}

func TestRepository_AsyncMatchesSync(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	emps := fixture()
	seedStore(t, store, emps...)
	repo := newRepo(store)

	sync, err := repo.GetAll(ctx)
	require.NoError(t, err)
	async, err := repo.GetAllAsync(ctx).Wait()
	require.NoError(t, err)
	if diff := cmp.Diff(sync, async); diff != "" {
		t.Errorf("GetAllAsync differs from GetAll (-sync +async):\n%s", diff)
	}

	one, err := repo.GetSingle(ctx, emps[3].ID)
	require.NoError(t, err)
	oneAsync, err := repo.GetSingleAsync(ctx, emps[3].ID).Wait()
	require.NoError(t, err)
	assert.Equal(t, one, oneAsync)

	_, err = repo.GetSingleAsync(ctx, 9999).Wait()
	assert.True(t, core.IsNotFound(err))
}

func TestRepository_UntrackedQueryConcurrentReads(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	seedStore(t, store, fixture()...)
	q := newRepo(store).GetAllAsQueryable()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := q.ToResult(ctx, core.Request{Take: 5, Filter: &core.Filter{Field: "surname", Operator: "contains", Value: "o"}})
			if err == nil && len(res.Data) != 5 {
				err = errors.New("short page")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
