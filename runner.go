package main

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/nf/intcode/intcode"
)

// burstSize is the number of instructions executed between checks for
// commands from other goroutines.
const burstSize = 10000

// StateKind describes why a StateFunc is called.
type StateKind int

const (
	ClearState StateKind = iota // a new machine was swapped in
	QuietState                  // the machine is running
	StepState                   // the step budget was used up
	BreakState                  // the machine reached the breakpoint
	StopState                   // the machine was stopped by the user
	PauseState                  // the machine waits for input
	HaltState                   // the machine halted
	FaultState                  // the machine faulted
)

// StateFunc observes the machine of a Runner. It is called on the goroutine
// of Run and must not retain m.
type StateFunc func(m *intcode.Machine, k StateKind, err error)

// Runner executes a machine on the goroutine that calls Run. Every other
// goroutine accesses the machine through Do or one of the control methods.
type Runner struct {
	ascii bool
	dev   bool
	out   io.Writer
	input <-chan string // lines read from the console; nil in the debugger
	state StateFunc

	do        chan func()
	reset     chan *intcode.Machine
	resetDone chan bool
	exit      chan bool
	exitOnce  sync.Once
	done      chan bool

	// Owned by the Run goroutine.
	m       *intcode.Machine
	brk     int64 // breakpoint address, -1 when unset
	budget  int64 // steps left before stopping, -1 when unlimited
	stopped bool
	fault   error
}

// NewRunner returns a Runner that writes machine output to out and feeds
// lines received from input to a machine waiting for input. In dev mode
// Run keeps going after the machine halts or faults, waiting for Swap.
func NewRunner(ascii, dev bool, out io.Writer, input <-chan string, state StateFunc) *Runner {
	return &Runner{
		ascii:     ascii,
		dev:       dev,
		out:       out,
		input:     input,
		state:     state,
		do:        make(chan func()),
		reset:     make(chan *intcode.Machine),
		resetDone: make(chan bool),
		exit:      make(chan bool),
		done:      make(chan bool),
		brk:       -1,
		budget:    -1,
	}
}

// Run executes m until it halts or faults, or until Stop is called.
// It returns the fault, if any, or an error if the console input ends while
// the machine waits for input. In dev mode Run returns only after Stop.
func (r *Runner) Run(m *intcode.Machine) error {
	defer close(r.done)
	r.m = m
	r.notify(ClearState, nil)
	for {
		if r.runnable() {
			r.burst()
		}
		if !r.dev {
			if r.fault != nil {
				return r.fault
			}
			if r.m.Halted() {
				return nil
			}
		}

		var input <-chan string
		if r.m.Paused() && r.m.In.Len() == 0 && r.fault == nil {
			input = r.input
		}
		if r.runnable() {
			select {
			case f := <-r.do:
				f()
			case m := <-r.reset:
				r.swap(m)
			case <-r.exit:
				return nil
			default:
			}
			continue
		}
		select {
		case f := <-r.do:
			f()
		case m := <-r.reset:
			r.swap(m)
		case line, ok := <-input:
			if !ok {
				if r.dev {
					log.Print("console: end of input")
					r.input = nil
					continue
				}
				return fmt.Errorf("end of input while waiting at %d", r.m.IP)
			}
			if err := r.feed(line); err != nil {
				log.Print(err)
			}
		case <-r.exit:
			return nil
		}
	}
}

func (r *Runner) runnable() bool {
	if r.stopped || r.fault != nil || r.m.Halted() {
		return false
	}
	return !r.m.Paused() || r.m.In.Len() > 0
}

func (r *Runner) burst() {
	for n := 0; n < burstSize; n++ {
		if err := r.m.Step(); err != nil {
			r.fault = err
			r.flush()
			r.notify(FaultState, err)
			return
		}
		switch {
		case r.m.Halted():
			r.flush()
			r.notify(HaltState, nil)
			return
		case r.m.Paused():
			r.flush()
			r.notify(PauseState, nil)
			return
		}
		if r.budget > 0 {
			if r.budget--; r.budget == 0 {
				r.budget = -1
				r.stopped = true
				r.flush()
				r.notify(StepState, nil)
				return
			}
		}
		if r.m.IP == r.brk {
			r.stopped = true
			r.flush()
			r.notify(BreakState, nil)
			return
		}
	}
	r.flush()
	r.notify(QuietState, nil)
}

func (r *Runner) swap(m *intcode.Machine) {
	r.m = m
	r.fault = nil
	r.budget = -1
	r.stopped = false
	r.notify(ClearState, nil)
	r.resetDone <- true
}

// flush writes the pending output of the machine.
func (r *Runner) flush() {
	if r.m.Out.Len() == 0 {
		return
	}
	if r.ascii {
		io.WriteString(r.out, r.m.DumpASCII())
		return
	}
	for _, v := range r.m.Out.Drain() {
		fmt.Fprintln(r.out, v)
	}
}

func (r *Runner) notify(k StateKind, err error) {
	if r.state != nil {
		r.state(r.m, k, err)
	}
}

// feed queues a line of console input: text in ASCII mode, otherwise
// integers separated by commas or spaces.
func (r *Runner) feed(line string) error {
	if r.ascii {
		r.m.LoadASCII(line)
		return nil
	}
	vals, err := parseValues(line)
	if err != nil {
		return err
	}
	r.m.Send(vals...)
	return nil
}

func parseValues(s string) ([]int64, error) {
	var vals []int64
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	}) {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input value %q", f)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Do calls f with the machine on the Run goroutine. After Run has returned
// f is called directly with the final machine.
func (r *Runner) Do(f func(m *intcode.Machine)) {
	done := make(chan bool)
	select {
	case r.do <- func() { f(r.m); close(done) }:
		<-done
	case <-r.done:
		f(r.m)
	}
}

// Swap replaces the machine being run by m.
func (r *Runner) Swap(m *intcode.Machine) {
	select {
	case r.reset <- m:
		<-r.resetDone
	case <-r.done:
	}
}

// Stop makes Run return.
func (r *Runner) Stop() {
	r.exitOnce.Do(func() { close(r.exit) })
}

func (r *Runner) control(f func()) {
	done := make(chan bool)
	select {
	case r.do <- func() { f(); close(done) }:
		<-done
	case <-r.done:
	}
}

// Continue resumes a machine stopped by Pause, Step or a breakpoint.
func (r *Runner) Continue() {
	r.control(func() {
		r.stopped = false
		r.budget = -1
		r.notify(QuietState, nil)
	})
}

// Pause stops the machine after the current burst of instructions.
func (r *Runner) Pause() {
	r.control(func() {
		r.stopped = true
		r.notify(StopState, nil)
	})
}

// Step executes n instructions and stops again.
func (r *Runner) Step(n int64) {
	r.control(func() {
		if n <= 0 {
			n = 1
		}
		r.stopped = false
		r.budget = n
	})
}

// Break sets the breakpoint to addr; a negative addr clears it.
func (r *Runner) Break(addr int64) {
	r.control(func() {
		if addr < 0 {
			addr = -1
		}
		r.brk = addr
		r.notify(QuietState, nil)
	})
}

// Input queues a line of input as if it had been typed on the console.
func (r *Runner) Input(line string, ascii bool) error {
	var err error
	r.control(func() {
		if ascii {
			r.m.LoadASCII(line)
		} else {
			var vals []int64
			if vals, err = parseValues(line); err == nil {
				r.m.Send(vals...)
			}
		}
		r.notify(QuietState, nil)
	})
	return err
}

// Breakpoint returns the breakpoint address, or -1.
func (r *Runner) Breakpoint() int64 {
	brk := int64(-1)
	r.control(func() { brk = r.brk })
	return brk
}
