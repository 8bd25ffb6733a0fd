package sched

import (
	"context"
	"sync"
	"sync/atomic"
)

// stopper is the shutdown controller of one Run invocation. Stop is a
// single monotonic transition: however many tasks request it concurrently,
// the cancellation broadcast to the running tasks happens exactly once.
// Stop only requests stopping, it never waits for anyone.
type stopper struct {
	once    sync.Once
	stopped atomic.Bool
	cancel  context.CancelFunc
}

func newStopper(cancel context.CancelFunc) *stopper {
	return &stopper{cancel: cancel}
}

func (s *stopper) Stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		s.cancel()
	})
}

func (s *stopper) Stopping() bool {
	return s.stopped.Load()
}
