package db

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madickediagne/LOGISEN/internal/apperr"
)

func TestGuardedFetch_FastResult(t *testing.T) {
	got, err := GuardedFetch(context.Background(), time.Second, func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestGuardedFetch_FastError(t *testing.T) {
	boom := errors.New("boom")
	_, err := GuardedFetch(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGuardedFetch_TimeoutWins(t *testing.T) {
	started := time.Now()
	got, err := GuardedFetch(context.Background(), 30*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(500 * time.Millisecond)
		return 42, nil
	})

	assert.True(t, apperr.Is(err, apperr.Timeout))
	assert.Zero(t, got, "caller must receive the zero value, never the late result")
	assert.Less(t, time.Since(started), 400*time.Millisecond, "timeout must not wait for the slow fetch")
}

func TestGuardedFetch_LateResultDiscarded(t *testing.T) {
	var fetchFinished atomic.Bool
	done := make(chan struct{})

	got, err := GuardedFetch(context.Background(), 20*time.Millisecond, func(ctx context.Context) (string, error) {
		defer close(done)
		time.Sleep(100 * time.Millisecond)
		fetchFinished.Store(true)
		return "late", nil
	})

	assert.True(t, apperr.Is(err, apperr.Timeout))
	assert.Equal(t, "", got)

	// The fetch still completes in the background; its result just never
	// reaches the caller.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background fetch never completed")
	}
	assert.True(t, fetchFinished.Load())
}

func TestGuardedFetch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GuardedFetch(ctx, time.Second, func(ctx context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	assert.True(t, apperr.Is(err, apperr.Timeout))
}
