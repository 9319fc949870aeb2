package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
		{
			name:     "shorter than BOM",
			input:    []byte("a"),
			expected: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(SkipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestLimitReader(t *testing.T) {
	t.Run("under limit", func(t *testing.T) {
		got, err := io.ReadAll(LimitReader(strings.NewReader("abc"), 10))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != "abc" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		got, err := io.ReadAll(LimitReader(strings.NewReader("abcd"), 4))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != "abcd" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := io.ReadAll(LimitReader(strings.NewReader("abcdef"), 4))
		if !errors.Is(err, ErrFileTooLarge) {
			t.Fatalf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("zero disables limit", func(t *testing.T) {
		got, err := io.ReadAll(LimitReader(strings.NewReader("abcdef"), 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 6 {
			t.Errorf("got %d bytes", len(got))
		}
	})
}

func TestCountingReader(t *testing.T) {
	cr := NewCountingReader(strings.NewReader("hello, world"))
	if _, err := io.ReadAll(cr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cr.BytesRead != 12 {
		t.Errorf("BytesRead = %d, want 12", cr.BytesRead)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "valid ascii", input: "Lovelace", expected: "Lovelace"},
		{name: "valid multibyte", input: "Brontë", expected: "Brontë"},
		{name: "single invalid byte", input: "Bront\xeb", expected: "Bront�"},
		{name: "each invalid byte replaced", input: "a\xff\xfeb", expected: "a��b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUTF8(tt.input); got != tt.expected {
				t.Errorf("SanitizeUTF8(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
