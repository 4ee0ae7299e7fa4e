// Package pipeline connects Intcode machines so that the output of each
// machine feeds the input of the next, optionally wrapping the last machine
// back to the first.
//
// The machines are driven round-robin from a single goroutine: each one runs
// until it pauses for input or halts, then its output is forwarded. No
// machine is shared with another; values only move between queues.
package pipeline

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nf/intcode/intcode"
)

var (
	// ErrStalled is returned by Run when every machine is waiting for
	// input that no other machine will produce.
	ErrStalled = errors.New("pipeline stalled")

	// ErrNoSignal is returned by Run when the last machine halts without
	// having produced any output.
	ErrNoSignal = errors.New("last machine halted without output")
)

// Pipeline is a chain of machines.
type Pipeline struct {
	machines []*intcode.Machine
	feedback bool
	log      *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// Feedback makes the output of the last machine feed the input of the first.
func Feedback() Option {
	return func(p *Pipeline) { p.feedback = true }
}

// WithLogger sets the logger that traces the values passed between
// machines.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New returns a pipeline of the given machines, in order. Values meant for a
// particular machine, such as a phase setting, should be sent to it before
// the pipeline runs.
func New(machines []*intcode.Machine, opts ...Option) *Pipeline {
	p := &Pipeline{machines: machines, log: zap.L()}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("pipeline")
	return p
}

// Machines returns the machines of p.
func (p *Pipeline) Machines() []*intcode.Machine { return p.machines }

// Run sends signal to the first machine and drives the pipeline until the
// last machine halts. It returns the last value that machine produced.
func (p *Pipeline) Run(signal ...int64) (int64, error) {
	if len(p.machines) == 0 {
		return 0, errors.New("empty pipeline")
	}
	p.machines[0].Send(signal...)

	var (
		last    = len(p.machines) - 1
		result  int64
		emitted bool
	)
	for round := 0; ; round++ {
		progress := false
		for i, m := range p.machines {
			ip, steps := m.IP, m.Steps()
			if err := m.Run(); err != nil {
				return 0, errors.Wrapf(err, "machine %d", i)
			}
			if m.IP != ip || m.Steps() != steps {
				progress = true
			}

			out := m.Out.Drain()
			if len(out) == 0 {
				continue
			}
			progress = true
			next := i + 1
			if i == last {
				result, emitted = out[len(out)-1], true
				if !p.feedback {
					continue
				}
				next = 0
			}
			p.log.Debug("forward",
				zap.Int("round", round),
				zap.Int("from", i),
				zap.Int("to", next),
				zap.Int64s("values", out),
			)
			p.machines[next].Send(out...)
		}

		if p.machines[last].Halted() {
			if !emitted {
				return 0, ErrNoSignal
			}
			p.log.Info("done", zap.Int("rounds", round+1), zap.Int64("signal", result))
			return result, nil
		}
		if !progress {
			return 0, errors.Wrapf(ErrStalled, "after %d rounds", round+1)
		}
	}
}
