package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modrac/pkgeval/internal/model"
	"github.com/modrac/pkgeval/internal/report"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := report.NewWriter(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	results := map[string]model.Outcome{
		"PkgA": model.OutcomeOK,
		"PkgB": model.OutcomeFail,
		"PkgC": model.OutcomeSkipped,
		"PkgD": model.OutcomeOK,
	}
	name, err := w.Write(t.Context(), "1.2.0", results)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Equal(t, "1.2.0", doc.Version)
	require.Equal(t, 2, doc.OK)
	require.Equal(t, 1, doc.Fail)
	require.Equal(t, 1, doc.Skipped)
	require.Equal(t, results, doc.Results)
	require.False(t, doc.Finished.IsZero())
}

func TestWriterClosed(t *testing.T) {
	t.Parallel()
	w, err := report.NewWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write(t.Context(), "1.2.0", nil)
	require.Error(t, err)
	require.Error(t, w.Close())
}

func TestWriterMissingDir(t *testing.T) {
	t.Parallel()
	_, err := report.NewWriter(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
