package core

// import.go loads delimited text files into a store in a single commit.
//
// Files are read one physical line at a time and each line is split on
// commas; quotes carry no meaning, so a stray quote only affects its own
// line. The first line is a header and is always skipped. Blank lines are
// ignored. A row whose cell count differs from ExpectedColumns is skipped
// and counted in ImportResult.Skipped. Every other row is converted field by field in
// schema order and staged with Repository.Add; after the stream ends one
// Commit persists the whole batch.
//
// A cell that cannot be converted (a date not in DateLayout, a missing
// required value) aborts the import and nothing is committed, unless
// SkipInvalidRows is set, in which case the row is skipped like a
// wrong-length row and counted in ImportResult.Invalid.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/staffdesk/internal/logging"
)

// ImportDateLayout is the day/month/year layout used by employee exports:
// two-digit day, one- or two-digit month ("26/01/1955", "03/4/2001").
const ImportDateLayout = "02/1/2006"

const (
	importDelimiter = ","
	maxLineBytes    = 1 << 20
)

// ImportOptions controls how an import source is interpreted.
type ImportOptions struct {
	ExpectedColumns int    // Cells per data row; 0 means one per writable field
	DateLayout      string // time.Parse layout for date cells; "" means ImportDateLayout
	SkipInvalidRows bool   // Skip rows with unparseable cells instead of failing
	MaxBytes        int64  // Reject sources larger than this; 0 disables the check
	DryRun          bool   // Parse and validate everything but commit nothing
}

func (o ImportOptions) withDefaults(columns int) ImportOptions {
	if o.ExpectedColumns <= 0 {
		o.ExpectedColumns = columns
	}
	if o.DateLayout == "" {
		o.DateLayout = ImportDateLayout
	}
	return o
}

// ImportResult reports the outcome of one import.
type ImportResult struct {
	ImportID  string        `json:"importId"`
	FileName  string        `json:"fileName"`
	Rows      int           `json:"rows"`     // Data rows read (header excluded)
	Imported  int           `json:"imported"` // Rows persisted
	Skipped   int           `json:"skipped"`  // Rows with the wrong cell count
	Invalid   int           `json:"invalid"`  // Rows dropped under SkipInvalidRows
	Accepted  int           `json:"accepted"` // Rows that parsed and were staged
	Bytes     int64         `json:"bytes"`
	Duration  time.Duration `json:"duration"`
	Committed bool          `json:"committed"`
}

// Importer loads CSV data for one schema.
type Importer[T Entity] struct {
	store  Store[T]
	schema *Schema[T]
}

// NewImporter creates an importer writing to store.
func NewImporter[T Entity](store Store[T], schema *Schema[T]) *Importer[T] {
	return &Importer[T]{store: store, schema: schema}
}

// ImportFile imports the file at path and returns the number of persisted rows.
//
// A missing file imports nothing and is not an error. A failed commit returns
// 0 and the error; nothing from the file is persisted.
func (im *Importer[T]) ImportFile(ctx context.Context, path string, opts ImportOptions) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.FromContext(ctx).Warn("import file not found", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	res, err := im.Import(ctx, f, filepath.Base(path), opts)
	if err != nil {
		return 0, err
	}
	return res.Imported, nil
}

// Import reads CSV data from r and commits every accepted row at once.
func (im *Importer[T]) Import(ctx context.Context, r io.Reader, name string, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()
	fields := im.schema.Writable()
	opts = opts.withDefaults(len(fields))

	res := &ImportResult{
		ImportID: uuid.New().String(),
		FileName: name,
	}
	ctx, log := logging.WithFields(ctx, "import_id", res.ImportID, "table", im.schema.Info.Key, "file", name)
	log.Info("import started")

	counter := NewCountingReader(LimitReader(r, opts.MaxBytes))
	sc := bufio.NewScanner(SkipBOM(counter))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	repo := NewRepository(im.store, im.schema)
	staged := 0

	for line := 1; sc.Scan(); line++ {
		if line%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if line == 1 {
			continue
		}

		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" {
			continue
		}
		res.Rows++

		record := strings.Split(SanitizeUTF8(text), importDelimiter)
		if len(record) != opts.ExpectedColumns {
			res.Skipped++
			continue
		}

		e, err := im.parseRow(fields, record, opts.DateLayout)
		if err == nil {
			err = im.schema.Validate(e)
		}
		if err != nil {
			if opts.SkipInvalidRows {
				res.Invalid++
				log.Debug("import row skipped", "line", line, "error", err)
				continue
			}
			log.Warn("import aborted", "line", line, "error", err)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		repo.Add(e)
		staged++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Bytes = counter.BytesRead
	res.Accepted = staged

	if opts.DryRun {
		repo.Discard()
		res.Duration = time.Since(start)
		log.Info("import dry run complete", "rows", res.Rows, "accepted", staged,
			"skipped", res.Skipped, "invalid", res.Invalid)
		return res, nil
	}

	ok, err := repo.Commit(ctx)
	res.Duration = time.Since(start)
	if err != nil {
		log.Error("import commit failed", "staged", staged, "error", err)
		return nil, err
	}
	if ok {
		res.Committed = true
		res.Imported = staged
	}

	log.Info("import complete",
		"rows", res.Rows,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"invalid", res.Invalid,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// parseRow maps record cells onto fields by position.
func (im *Importer[T]) parseRow(fields []Field[T], record []string, dateLayout string) (T, error) {
	e := im.schema.New()
	for i, f := range fields {
		if i >= len(record) {
			break
		}
		cell := CleanCell(record[i])

		if f.Type == FieldDate {
			t, err := time.Parse(dateLayout, cell)
			if err != nil {
				var zero T
				return zero, &ValidationError{Field: f.Name, Value: cell, Message: fmt.Sprintf("invalid date %q", cell)}
			}
			if err := assign(f.Ref(e), t, f.Type); err != nil {
				var zero T
				return zero, err
			}
			continue
		}

		if err := assign(f.Ref(e), cell, f.Type); err != nil {
			var zero T
			return zero, &ValidationError{Field: f.Name, Value: cell, Message: err.Error()}
		}
	}
	return e, nil
}
