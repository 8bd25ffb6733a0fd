package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStopperIdempotent(t *testing.T) {
	t.Parallel()
	var broadcasts atomic.Int64
	s := newStopper(func() { broadcasts.Add(1) })

	require.False(t, s.Stopping())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	require.True(t, s.Stopping())
	require.EqualValues(t, 1, broadcasts.Load(), "concurrent stops must broadcast once")

	s.Stop()
	require.EqualValues(t, 1, broadcasts.Load())
}

func TestStopperCancelsContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(t.Context())
	s := newStopper(cancel)

	s.Stop()
	select {
	case <-ctx.Done():
	default:
		t.Fatal("stop must cancel the run context")
	}
}
