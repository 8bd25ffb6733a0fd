// Package sched drives the evaluation: a fixed pool of workers pulling
// jobs off a shared queue, per-job timeouts with forced teardown, result
// aggregation and an independent progress reporter, all under one
// cooperative shutdown controller.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modrac/pkgeval/internal/log"
	"github.com/modrac/pkgeval/internal/model"
	"github.com/modrac/pkgeval/internal/progress"
	"github.com/modrac/pkgeval/internal/sandbox"
)

// WarmupJob is the synthetic job run once before the workers start. Its
// outcome is not recorded; it exists to surface one-time setup failures
// (missing privileges, broken sandbox binary) before committing to
// parallel work.
const WarmupJob = "_warmup"

// Installer resolves a runtime version to an installation directory.
// *artifact.Cache satisfies it.
type Installer interface {
	Acquire(ctx context.Context, version string) (string, error)
}

type Config struct {
	Workers        int
	Version        string
	Timeout        time.Duration
	DepwarnAsError bool
	// ReportEvery is the progress interval; zero means one second.
	ReportEvery time.Duration
}

// Pool schedules package evaluations over a fixed number of workers.
type Pool struct {
	cfg       Config
	installer Installer
	runner    sandbox.Runner
	sink      progress.Sink
}

func New(cfg Config, installer Installer, runner sandbox.Runner, sink progress.Sink) *Pool {
	if sink == nil {
		sink = progress.Discard{}
	}
	return &Pool{
		cfg:       cfg,
		installer: installer,
		runner:    runner,
		sink:      sink,
	}
}

// Run evaluates jobs and blocks until every worker and the reporter have
// terminated. The returned map holds one outcome per completed job; on a
// fatal error it is partial and the error describes the cause. A worker
// observing the shutdown request mid-job exits quietly and leaves that job
// unrecorded.
func (p *Pool) Run(ctx context.Context, jobs []model.Package) (map[string]model.Outcome, error) {
	// the caller always gets a usable map, even on a setup abort
	if p.cfg.Workers < 1 {
		return map[string]model.Outcome{}, fmt.Errorf("worker count must be >= 1, got %d", p.cfg.Workers)
	}

	install, err := p.installer.Acquire(ctx, p.cfg.Version)
	if err != nil {
		return map[string]model.Outcome{}, fmt.Errorf("acquiring runtime %s: %w", p.cfg.Version, err)
	}

	if err := p.warmup(ctx, install); err != nil {
		return map[string]model.Outcome{}, err
	}

	q := newQueue(jobs, p.cfg.Workers)
	res := newTally(len(jobs))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := newStopper(cancel)

	var g errgroup.Group
	for i := range p.cfg.Workers {
		g.Go(func() error {
			return p.worker(runCtx, i, q, res, stop, install)
		})
	}
	g.Go(func() error {
		return p.reportLoop(runCtx, q, res, stop)
	})

	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		// interrupted from outside, the partial tally is still returned
		err = ctx.Err()
	}
	return res.result(), err
}

func (p *Pool) warmup(ctx context.Context, install string) error {
	wctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	ok, err := p.runner.Run(wctx, model.Package{Name: WarmupJob}, install, false)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrWarmup, err)
	}
	if !ok {
		return model.ErrWarmup
	}
	return nil
}

// worker pulls jobs until the queue drains or shutdown is requested. A
// cancellation observed mid-job is expected control flow; any other error
// is fatal to the whole pool.
func (p *Pool) worker(ctx context.Context, id int, q *queue, res *tally, stop *stopper, install string) error {
	ctx = log.WithAttrs(ctx, slog.Int("worker", id))
	for {
		if stop.Stopping() || ctx.Err() != nil {
			return nil
		}
		job, ok := q.pop(id)
		if !ok {
			return nil
		}

		outcome, err := p.runJob(ctx, job, install)
		if err != nil {
			q.clear(id)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			stop.Stop()
			return fmt.Errorf("evaluating %s: %w", job.Name, err)
		}
		// record before clearing the slot so an idle pool implies a
		// complete tally
		res.set(job.Name, outcome)
		q.clear(id)
	}
}

// runJob wraps one sandbox invocation in the per-job timeout. A fired
// timeout tears the run down and counts as fail; it is indistinguishable
// from a normal failure here, the job log tells the difference.
func (p *Pool) runJob(ctx context.Context, job model.Package, install string) (model.Outcome, error) {
	slog.DebugContext(ctx, "evaluating package", "package", job.Name)

	jobCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	passed, err := p.runner.Run(jobCtx, job, install, p.cfg.DepwarnAsError)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return "", context.Cause(ctx)
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			slog.WarnContext(ctx, "package timed out", "package", job.Name, "timeout", p.timeout())
			return model.OutcomeFail, nil
		default:
			return "", err
		}
	}
	if passed {
		return model.OutcomeOK, nil
	}
	return model.OutcomeFail, nil
}

// reportLoop periodically publishes a best-effort snapshot and requests
// shutdown once the queue is drained and every worker is idle. A failing
// sink stops the pool too.
func (p *Pool) reportLoop(ctx context.Context, q *queue, res *tally, stop *stopper) error {
	interval := p.cfg.ReportEvery
	if interval == 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// idle before the snapshot: an idle pool implies a complete
		// tally, so the last published snapshot shows the final counts
		done := q.idle()
		if err := p.sink.Report(snapshot(q, res, start)); err != nil {
			stop.Stop()
			return fmt.Errorf("reporting progress: %w", err)
		}
		if done {
			stop.Stop()
			return nil
		}
	}
}

func snapshot(q *queue, res *tally, start time.Time) progress.Snapshot {
	ok, fail, skipped := res.counts()
	now := time.Now()
	return progress.Snapshot{
		OK:        ok,
		Fail:      fail,
		Skipped:   skipped,
		Remaining: q.total - ok - fail - skipped,
		Total:     q.total,
		Workers:   q.workers(),
		Elapsed:   now.Sub(start),
		Taken:     now,
	}
}

func (p *Pool) timeout() time.Duration {
	if p.cfg.Timeout > 0 {
		return p.cfg.Timeout
	}
	return 45 * time.Minute
}
