package inbox_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
	"github.com/JonMunkholm/staffdesk/internal/inbox"
	"github.com/JonMunkholm/staffdesk/internal/store/memstore"
)

const csvBody = "Personnel_Records.Payroll_Number,Personnel_Records.Forenames,Personnel_Records.Surname," +
	"Personnel_Records.Date_of_Birth,Personnel_Records.Telephone,Personnel_Records.Mobile," +
	"Personnel_Records.Address,Personnel_Records.Address_2,Personnel_Records.Postcode," +
	"Personnel_Records.EMail_Home,Personnel_Records.Start_Date\n" +
	"COOP08,John,William,26/01/1955,12345678,987654231,12 Foreman road,London,GU12 6JW,nomadic20@hotmail.co.uk,18/04/2013\n" +
	"JACK13,Jerry,Jackson,11/5/1974,2050508,6987457,115 Spinney Road,Luton,LU33DF,gerry.jackson@bt.com,18/04/2013\n"

type harness struct {
	dir    string
	store  *memstore.Store[*tables.Employee]
	cancel context.CancelFunc
	errc   chan error
}

func start(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		dir:   t.TempDir(),
		store: memstore.New(tables.Employees()),
		errc:  make(chan error, 1),
	}
	importer := core.NewImporter(h.store, tables.Employees())
	fn := func(ctx context.Context, path string) (int, error) {
		return importer.ImportFile(ctx, path, core.ImportOptions{})
	}
	return h.run(t, fn)
}

func (h *harness) run(t *testing.T, fn inbox.ImportFunc) *harness {
	t.Helper()
	w := inbox.New(h.dir, core.NewImportLimiter(1, time.Second), fn).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- w.Run(ctx) }()
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func (h *harness) count(t *testing.T) int {
	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

func entries(t *testing.T, dir string) []string {
	list, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}

// drop writes body next to dir and renames it in, so the watcher sees a
// complete file.
func drop(t *testing.T, dir, name, body string) {
	t.Helper()
	tmp := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(tmp, []byte(body), 0o600))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func TestWatcher_ImportsDroppedFile(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := start(t)
	// Give the watcher time to register before the drop.
	time.Sleep(50 * time.Millisecond)
	drop(t, h.dir, "staff.csv", csvBody)

	require.Eventually(t, func() bool {
		return h.count(t) == 2 && len(entries(t, filepath.Join(h.dir, inbox.ProcessedDir))) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.NoFileExists(t, filepath.Join(h.dir, "staff.csv"))
	h.stop(t)
}

func TestWatcher_SweepsExistingFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := &harness{
		dir:   t.TempDir(),
		store: memstore.New(tables.Employees()),
		errc:  make(chan error, 1),
	}
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "early.csv"), []byte(csvBody), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "notes.txt"), []byte("ignore me"), 0o600))

	importer := core.NewImporter(h.store, tables.Employees())
	h.run(t, func(ctx context.Context, path string) (int, error) {
		return importer.ImportFile(ctx, path, core.ImportOptions{})
	})

	require.Eventually(t, func() bool { return h.count(t) == 2 }, 5*time.Second, 10*time.Millisecond)
	h.stop(t)

	assert.FileExists(t, filepath.Join(h.dir, "notes.txt"))
	assert.Len(t, entries(t, filepath.Join(h.dir, inbox.ProcessedDir)), 1)
}

func TestWatcher_FailedImportMovesToFailed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := start(t)
	time.Sleep(50 * time.Millisecond)
	drop(t, h.dir, "bad.csv", "header\nCOOP08,John,William,31/31/1955,,,,,,,\n")

	require.Eventually(t, func() bool {
		return len(entries(t, filepath.Join(h.dir, inbox.FailedDir))) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Zero(t, h.count(t))
	assert.Empty(t, entries(t, filepath.Join(h.dir, inbox.ProcessedDir)))
	h.stop(t)
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := start(t)
	h.stop(t)
}
