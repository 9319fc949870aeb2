package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportLimiter_Defaults(t *testing.T) {
	l := NewImportLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrentImports, l.Max())
	assert.Equal(t, DefaultImportWait, l.maxWait)
}

func TestImportLimiter_RejectsWhenFull(t *testing.T) {
	ctx := context.Background()
	l := NewImportLimiter(1, 20*time.Millisecond)

	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 1, l.Active())

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Equal(t, "FILE005", MapError(err).Code)

	l.Release()
	assert.Zero(t, l.Active())
	require.NoError(t, l.Acquire(ctx))
	l.Release()
}

func TestImportLimiter_CallerCancel(t *testing.T) {
	l := NewImportLimiter(1, time.Minute)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.Canceled)
}

func TestImportLimiter_WaitForDrain(t *testing.T) {
	l := NewImportLimiter(2, time.Second)
	require.NoError(t, l.Acquire(context.Background()))

	done := make(chan error, 1)
	go func() { done <- l.WaitForDrain(context.Background()) }()

	select {
	case <-done:
		t.Fatal("drain returned while an import was active")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drain did not return after release")
	}
}
