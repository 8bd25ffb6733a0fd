// Package report persists evaluation results.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/modrac/pkgeval/internal/model"
)

// Document is the on-disk shape of one evaluation run.
type Document struct {
	Version  string                   `json:"version"`
	Finished time.Time                `json:"finished"`
	OK       int                      `json:"ok"`
	Fail     int                      `json:"fail"`
	Skipped  int                      `json:"skipped"`
	Results  map[string]model.Outcome `json:"results"`
}

// Writer stores one JSON document per run inside a directory, confined via
// os.Root so a hostile package name can not escape it.
type Writer struct {
	root *os.Root
}

func NewWriter(dir string) (*Writer, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Writer{root: root}, nil
}

// Write persists results for version and returns the file name used.
func (w *Writer) Write(ctx context.Context, version string, results map[string]model.Outcome) (string, error) {
	if w.root == nil {
		return "", errors.New("report writer already closed")
	}

	doc := Document{
		Version:  version,
		Finished: time.Now().UTC(),
		Results:  results,
	}
	for _, o := range results {
		switch o {
		case model.OutcomeOK:
			doc.OK++
		case model.OutcomeFail:
			doc.Fail++
		case model.OutcomeSkipped:
			doc.Skipped++
		}
	}

	name := "pkgeval-" + version + "-" + doc.Finished.Format("2006-01-02-15-04-05") + ".json"
	f, err := w.root.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating report: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(doc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}
	slog.InfoContext(ctx, "report saved", "path", name)
	return name, nil
}

func (w *Writer) Close() error {
	if w.root == nil {
		return errors.New("report writer already closed")
	}
	err := w.root.Close()
	w.root = nil
	return err
}
