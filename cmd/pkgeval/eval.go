package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/modrac/pkgeval/internal/artifact"
	"github.com/modrac/pkgeval/internal/model"
	"github.com/modrac/pkgeval/internal/progress"
	"github.com/modrac/pkgeval/internal/registry"
	"github.com/modrac/pkgeval/internal/report"
	"github.com/modrac/pkgeval/internal/sandbox"
	"github.com/modrac/pkgeval/internal/sched"
)

// evaluation wires the depot, the artifact cache and the sandbox runner
// into one runnable unit. It is built once and may run repeatedly in timer
// mode.
type evaluation struct {
	cfg     model.Config
	jobs    []model.Package
	skipped []string
	cache   *artifact.Cache
	runner  sandbox.Runner
	sink    progress.Sink
}

func newEvaluation(ctx context.Context, cfg model.Config, only []string) (*evaluation, error) {
	reg, err := registry.Load(filepath.Join(cfg.Depot, registry.FileName))
	if err != nil {
		return nil, err
	}

	manifest, err := artifact.LoadManifest(filepath.Join(cfg.Depot, artifact.ManifestName))
	if err != nil {
		return nil, err
	}

	var filter map[string]struct{}
	if len(only) > 0 {
		filter = make(map[string]struct{}, len(only))
		for _, name := range only {
			filter[name] = struct{}{}
		}
	}
	jobs := reg.List(ctx, filter)

	skip := make(map[string]struct{}, len(cfg.Skip))
	for _, name := range cfg.Skip {
		skip[name] = struct{}{}
	}
	var scheduled []model.Package
	var skipped []string
	for _, job := range jobs {
		if _, ok := skip[job.Name]; ok {
			skipped = append(skipped, job.Name)
			continue
		}
		scheduled = append(scheduled, job)
	}

	slog.InfoContext(ctx, "evaluation prepared",
		"packages", len(scheduled),
		"skipped", len(skipped),
		"runtime", cfg.Version,
		"workers", cfg.Workers)

	return &evaluation{
		cfg:     cfg,
		jobs:    scheduled,
		skipped: skipped,
		cache:   artifact.NewCache(manifest, cfg.Cache),
		runner: &sandbox.ExecRunner{
			Binary:  cfg.Sandbox,
			Version: cfg.Version,
			LogDir:  cfg.Logs,
		},
		sink: progress.NewWriter(os.Stderr),
	}, nil
}

func (e *evaluation) do(ctx context.Context) error {
	pool := sched.New(sched.Config{
		Workers:        e.cfg.Workers,
		Version:        e.cfg.Version,
		Timeout:        e.cfg.Timeout,
		DepwarnAsError: e.cfg.DepwarnAsError,
	}, e.cache, e.runner, e.sink)

	results, runErr := pool.Run(ctx, e.jobs)

	// configured skips are recorded, not scheduled
	for _, name := range e.skipped {
		if _, ok := results[name]; !ok {
			results[name] = model.OutcomeSkipped
		}
	}

	printSummary(results)

	if e.cfg.Output != "" {
		if err := e.persist(ctx, results); err != nil {
			if runErr == nil {
				runErr = err
			} else {
				slog.ErrorContext(ctx, "persisting report failed", "error", err)
			}
		}
	}
	return runErr
}

func (e *evaluation) persist(ctx context.Context, results map[string]model.Outcome) error {
	if err := os.MkdirAll(e.cfg.Output, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	w, err := report.NewWriter(e.cfg.Output)
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()
	_, err = w.Write(ctx, e.cfg.Version, results)
	return err
}

func printSummary(results map[string]model.Outcome) {
	var ok, fail, skipped int
	var failed []string
	for name, o := range results {
		switch o {
		case model.OutcomeOK:
			ok++
		case model.OutcomeFail:
			fail++
			failed = append(failed, name)
		case model.OutcomeSkipped:
			skipped++
		}
	}
	fmt.Printf("packages: %d, ok: %d, fail: %d, skipped: %d\n", len(results), ok, fail, skipped)
	sort.Strings(failed)
	for _, name := range failed {
		fmt.Printf("  fail: %s\n", name)
	}
}
