package sched

import (
	"sync"
	"time"

	"github.com/modrac/pkgeval/internal/model"
	"github.com/modrac/pkgeval/internal/progress"
)

// queue is the shared work queue plus the per-worker slots. Pop-and-record
// happens under one mutex so no two workers can ever claim the same job,
// and a popped job is visible in its worker's slot before anyone can
// observe the queue shrink.
type queue struct {
	mu    sync.Mutex
	jobs  []model.Package
	slots []slot
	total int
}

type slot struct {
	job     string
	started time.Time
}

func newQueue(jobs []model.Package, workers int) *queue {
	return &queue{
		jobs:  append([]model.Package(nil), jobs...),
		slots: make([]slot, workers),
		total: len(jobs),
	}
}

// pop removes one job (from the end, order is not part of the contract)
// and records it in the worker's slot. The second return is false when the
// queue is drained.
func (q *queue) pop(worker int) (model.Package, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return model.Package{}, false
	}
	job := q.jobs[len(q.jobs)-1]
	q.jobs = q.jobs[:len(q.jobs)-1]
	q.slots[worker] = slot{job: job.Name, started: time.Now()}
	return job, true
}

func (q *queue) clear(worker int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.slots[worker] = slot{}
}

// idle reports whether the queue is drained and every worker slot is empty,
// i.e. the evaluation is complete.
func (q *queue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) > 0 {
		return false
	}
	for _, s := range q.slots {
		if s.job != "" {
			return false
		}
	}
	return true
}

func (q *queue) workers() []progress.WorkerStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]progress.WorkerStatus, len(q.slots))
	for i, s := range q.slots {
		out[i] = progress.WorkerStatus{Worker: i, Job: s.job, Started: s.started}
	}
	return out
}
