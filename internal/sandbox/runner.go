// Package sandbox is the boundary to the isolated test execution
// environment. The scheduler only depends on the Runner interface; the
// shipped implementation shells out to a sandbox binary and owns nothing
// but command construction, log capture and process teardown.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/modrac/pkgeval/internal/model"
)

// Runner runs one package's test suite against a runtime installation.
// It must return true only on a clean pass and must unwind promptly when
// ctx is cancelled. A returned error other than the ctx error signals a
// broken setup, not a failing test suite.
type Runner interface {
	Run(ctx context.Context, job model.Package, install string, depwarnAsError bool) (bool, error)
}

// ExecRunner invokes a sandbox binary for every job, capturing interleaved
// stdout and stderr into logs/logs-<version>/<job>.log.
type ExecRunner struct {
	// Binary is the sandbox entry point. It receives the package name and
	// the runtime installation directory as arguments.
	Binary string
	// Args are prepended to every invocation, before the per-job arguments.
	Args []string
	// Env is the process environment; nil inherits the current one.
	Env []string

	Version string
	LogDir  string
}

// killGrace bounds how long a cancelled run may linger between the kill
// signal and Wait returning.
const killGrace = 10 * time.Second

func (r *ExecRunner) Run(ctx context.Context, job model.Package, install string, depwarnAsError bool) (bool, error) {
	logPath, err := r.logFile(job)
	if err != nil {
		return false, err
	}
	f, err := os.Create(logPath)
	if err != nil {
		return false, fmt.Errorf("creating job log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	args := append([]string(nil), r.Args...)
	if depwarnAsError {
		args = append(args, "--depwarn=error")
	}
	args = append(args, job.Name, install)

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Env = r.Env
	cmd.Stdout = f
	cmd.Stderr = f
	cmd.WaitDelay = killGrace

	started := time.Now()
	err = cmd.Run()
	slog.DebugContext(ctx, "sandbox run finished",
		"package", job.Name,
		"elapsed", time.Since(started),
		"log", logPath,
		"error", err)

	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		// forced teardown, the context error describes why
		return false, ctx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("starting sandbox: %w", err)
	}
}

func (r *ExecRunner) logFile(job model.Package) (string, error) {
	// keep hostile package names confined to the log directory
	name := filepath.Base(job.Name)
	if name == "." || name == ".." || name == string(os.PathSeparator) {
		return "", fmt.Errorf("unusable package name %q", job.Name)
	}
	dir := filepath.Join(r.LogDir, "logs-"+r.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log dir: %w", err)
	}
	return filepath.Join(dir, name+".log"), nil
}
