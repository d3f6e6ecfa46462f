// Package edit implements the bulk block operations: region copy, fill and
// nudge. Each operation runs one destination chunk per step so callers
// can report progress or stop between chunks.
package edit

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/chunk"
)

// ErrLevelSaving is returned when the destination is being written to disk.
var ErrLevelSaving = errors.New("level is saving")

// Recorder is told about every destination chunk before its first write.
type Recorder interface {
	Record(l chunk.Level, c *chunk.Chunk) error
}

// Stats counts what an operation did.
type Stats struct {
	Chunks       int
	Skipped      int
	Created      int
	Blocks       int
	Entities     int
	TileEntities int
	TileTicks    int
	Fallbacks    int
	Relit        int
}

func (s Stats) fields() logrus.Fields {
	return logrus.Fields{
		"chunks":        s.Chunks,
		"skipped":       s.Skipped,
		"created":       s.Created,
		"blocks":        s.Blocks,
		"entities":      s.Entities,
		"tile_entities": s.TileEntities,
		"tile_ticks":    s.TileTicks,
		"fallbacks":     s.Fallbacks,
		"relight":       s.Relit,
	}
}

// Step reports progress after one unit of work.
type Step struct {
	Done  int
	Total int
}

// Operation is a resumable cursor over the chunks an operation touches.
// Work already done stays committed when the caller stops early.
type Operation struct {
	name  string
	steps []func() error
	done  int
	stats *Stats
	log   logrus.FieldLogger
	ended bool
}

func newOperation(name string, log logrus.FieldLogger) *Operation {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Operation{name: name, stats: &Stats{}, log: log.WithField("op", name)}
}

func (o *Operation) add(f func() error) {
	o.steps = append(o.steps, f)
}

func (o *Operation) Name() string { return o.name }

// Total is the number of steps.
func (o *Operation) Total() int { return len(o.steps) }

// Done reports whether every step ran.
func (o *Operation) Done() bool { return o.done >= len(o.steps) }

func (o *Operation) Stats() Stats { return *o.stats }

// Advance runs the next step. Calling it on a finished operation does
// nothing.
func (o *Operation) Advance() (Step, error) {
	if o.Done() {
		o.finish()
		return Step{Done: o.done, Total: len(o.steps)}, nil
	}
	if err := o.steps[o.done](); err != nil {
		return Step{Done: o.done, Total: len(o.steps)}, err
	}
	o.done++
	if o.Done() {
		o.finish()
	}
	return Step{Done: o.done, Total: len(o.steps)}, nil
}

// Complete runs every remaining step.
func (o *Operation) Complete() error {
	for !o.Done() {
		if _, err := o.Advance(); err != nil {
			return err
		}
	}
	o.finish()
	return nil
}

func (o *Operation) finish() {
	if o.ended {
		return
	}
	o.ended = true
	o.log.WithFields(o.stats.fields()).Info("finished")
}

// Then appends the steps of next, sharing this operation's stats.
func (o *Operation) Then(next *Operation) *Operation {
	*next.stats = *o.stats
	next.stats = o.stats
	o.steps = append(o.steps, next.steps[next.done:]...)
	return o
}

// Run drives op until it finishes, fails or ctx is cancelled. onStep may
// be nil. Cancellation is not an error; op.Done tells whether the run was
// complete.
func Run(ctx context.Context, op *Operation, onStep func(Step)) error {
	for !op.Done() {
		if ctx.Err() != nil {
			op.log.WithFields(op.stats.fields()).Warn("cancelled")
			return nil
		}
		s, err := op.Advance()
		if err != nil {
			return err
		}
		if onStep != nil {
			onStep(s)
		}
	}
	op.finish()
	return nil
}
