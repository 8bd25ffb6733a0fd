package progress_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/modrac/pkgeval/internal/progress"
	"github.com/stretchr/testify/require"
)

func TestWriterReport(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := progress.NewWriter(&buf)

	taken := time.Date(2026, 8, 30, 12, 0, 42, 0, time.UTC)
	err := w.Report(progress.Snapshot{
		OK:        3,
		Fail:      1,
		Remaining: 6,
		Total:     10,
		Elapsed:   90 * time.Second,
		Taken:     taken,
		Workers: []progress.WorkerStatus{
			{Worker: 0, Job: "PkgA", Started: taken.Add(-12 * time.Second)},
			{Worker: 1},
		},
	})
	require.NoError(t, err)

	want := "ok 3, fail 1, skipped 0, remaining 6/10, elapsed 1m30s\n" +
		"  worker 0: PkgA (12s)\n" +
		"  worker 1: idle\n"
	require.Equal(t, want, buf.String())
}

func TestWriterEmptySnapshot(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, progress.NewWriter(&buf).Report(progress.Snapshot{}))
	require.Equal(t, "ok 0, fail 0, skipped 0, remaining 0/0, elapsed 0s\n", buf.String())
}
