package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "validation error",
			err:      &ValidationError{Field: "surname", Message: "unknown field"},
			wantCode: "VAL001",
		},
		{
			name:     "wrapped validation error",
			err:      fmt.Errorf("query: %w", &ValidationError{Message: "filter group has no conditions"}),
			wantCode: "VAL001",
		},
		{
			name:     "invalid date",
			err:      fmt.Errorf("line 3: %w", &ValidationError{Field: "dateOfBirth", Message: `invalid date "31/31/1999"`}),
			wantCode: "VAL002",
		},
		{
			name:     "required field",
			err:      &ValidationError{Field: "surname", Message: "required field is empty"},
			wantCode: "VAL003",
		},
		{
			name:     "not found",
			err:      NotFoundError("employees", 7),
			wantCode: "NF001",
		},
		{
			name:     "concurrency conflict",
			err:      fmt.Errorf("update: %w", ConcurrencyError("employees", ChangeUpdate, 7)),
			wantCode: "CON001",
		},
		{
			name:     "postgres duplicate key",
			err:      StoreError("insert", errors.New("ERROR: duplicate key value violates unique constraint \"employees_payroll_number_key\"")),
			wantCode: "DB001",
		},
		{
			name:     "sqlite unique constraint",
			err:      StoreError("insert", errors.New("constraint failed: UNIQUE constraint failed: employees.payroll_number (2067)")),
			wantCode: "DB001",
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode: "DB002",
		},
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("scan: %w", context.DeadlineExceeded),
			wantCode: "DB003",
		},
		{
			name:     "other store failure",
			err:      StoreError("commit", errors.New("disk I/O error")),
			wantCode: "DB000",
		},
		{
			name:     "file too large",
			err:      fmt.Errorf("read upload.csv: %w", ErrFileTooLarge),
			wantCode: "FILE001",
		},
		{
			name:     "too many imports",
			err:      ErrTooManyImports,
			wantCode: "FILE005",
		},
		{
			name:     "unknown error",
			err:      errors.New("something strange happened"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(NotFoundError("employees", 1))
	want := "Record not found (Code: NF001). Refresh the list; the record may have been deleted"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrConcurrency) {
		t.Error("ErrConcurrency should be user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unknown error should not be user facing")
	}
}

func TestStoreError_KeepsCategories(t *testing.T) {
	conflict := ConcurrencyError("employees", ChangeDelete, 3)
	if got := StoreError("commit", conflict); got != conflict {
		t.Errorf("StoreError rewrapped a concurrency error: %v", got)
	}

	wrapped := StoreError("commit", errors.New("disk full"))
	if !errors.Is(wrapped, ErrStore) {
		t.Errorf("expected ErrStore, got %v", wrapped)
	}
	if StoreError("noop", nil) != nil {
		t.Error("StoreError(nil) should be nil")
	}
}
