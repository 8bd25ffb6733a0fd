// Package progress decouples the scheduler from status rendering: the pool
// publishes snapshots to a Sink, and what the sink does with them is its
// own business.
package progress

import (
	"fmt"
	"io"
	"time"
)

// WorkerStatus is one worker's slot as observed at snapshot time. A zero
// Job means the worker is idle. Reads are best-effort; a status may already
// be stale when rendered.
type WorkerStatus struct {
	Worker  int
	Job     string
	Started time.Time
}

func (w WorkerStatus) Idle() bool {
	return w.Job == ""
}

// Snapshot is an eventually consistent view of a running evaluation.
type Snapshot struct {
	OK        int
	Fail      int
	Skipped   int
	Remaining int
	Total     int
	Workers   []WorkerStatus
	Elapsed   time.Duration
	Taken     time.Time
}

// Sink consumes snapshots. Report must tolerate transiently inconsistent
// snapshots; an error from it stops the evaluation.
type Sink interface {
	Report(Snapshot) error
}

// Discard ignores every snapshot.
type Discard struct{}

func (Discard) Report(Snapshot) error { return nil }

// Writer renders each snapshot as plain text to an io.Writer.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (p *Writer) Report(s Snapshot) error {
	_, err := fmt.Fprintf(p.w, "ok %d, fail %d, skipped %d, remaining %d/%d, elapsed %s\n",
		s.OK, s.Fail, s.Skipped, s.Remaining, s.Total, s.Elapsed.Round(time.Second))
	if err != nil {
		return err
	}
	for _, w := range s.Workers {
		if w.Idle() {
			_, err = fmt.Fprintf(p.w, "  worker %d: idle\n", w.Worker)
		} else {
			_, err = fmt.Fprintf(p.w, "  worker %d: %s (%s)\n",
				w.Worker, w.Job, s.Taken.Sub(w.Started).Round(time.Second))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
