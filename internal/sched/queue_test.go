package sched

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modrac/pkgeval/internal/model"
)

func TestQueuePopIsExclusive(t *testing.T) {
	t.Parallel()
	const workers = 8
	jobs := make([]model.Package, 100)
	for i := range jobs {
		jobs[i] = model.Package{Name: fmt.Sprintf("Pkg%03d", i)}
	}

	q := newQueue(jobs, workers)

	var mu sync.Mutex
	claimed := make(map[string]int)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, ok := q.pop(w)
				if !ok {
					return
				}
				mu.Lock()
				claimed[job.Name]++
				mu.Unlock()
				q.clear(w)
			}
		}()
	}
	wg.Wait()

	require.Len(t, claimed, len(jobs))
	for name, n := range claimed {
		require.Equal(t, 1, n, name)
	}
	require.True(t, q.idle())
}

func TestQueueIdle(t *testing.T) {
	t.Parallel()
	q := newQueue([]model.Package{{Name: "PkgA"}}, 2)
	require.False(t, q.idle(), "job still queued")

	job, ok := q.pop(0)
	require.True(t, ok)
	require.Equal(t, "PkgA", job.Name)
	require.False(t, q.idle(), "job running in a slot")

	st := q.workers()
	require.Equal(t, "PkgA", st[0].Job)
	require.True(t, st[1].Idle())

	q.clear(0)
	require.True(t, q.idle())

	_, ok = q.pop(1)
	require.False(t, ok)
}
