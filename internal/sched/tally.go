package sched

import (
	"sync"

	"github.com/modrac/pkgeval/internal/model"
)

// tally aggregates job outcomes. Each job name is written at most once, by
// the worker that claimed it; the mutex only serializes the map accesses
// themselves.
type tally struct {
	mu sync.Mutex
	m  map[string]model.Outcome
}

func newTally(n int) *tally {
	return &tally{m: make(map[string]model.Outcome, n)}
}

func (t *tally) set(name string, outcome model.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[name] = outcome
}

func (t *tally) counts() (ok, fail, skipped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, o := range t.m {
		switch o {
		case model.OutcomeOK:
			ok++
		case model.OutcomeFail:
			fail++
		case model.OutcomeSkipped:
			skipped++
		}
	}
	return ok, fail, skipped
}

func (t *tally) result() map[string]model.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]model.Outcome, len(t.m))
	for k, v := range t.m {
		out[k] = v
	}
	return out
}
