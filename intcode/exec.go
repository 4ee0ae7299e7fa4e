// Package intcode provides an implementation of an Intcode computer, called
// Machine, that executes Intcode programs.
//
// A Machine reads values from its input Queue and writes values to its output
// Queue. When it executes an input instruction while the input queue is empty
// it pauses without advancing; the caller may then queue more input and call
// Run again to resume at that same instruction. This makes it possible to
// drive a Machine interactively or to chain several machines together.
package intcode

import (
	"fmt"

	"go.uber.org/zap"
)

// Machine is an implementation of an Intcode computer.
type Machine struct {
	Mem  Memory
	IP   int64 // address of the next instruction
	Base int64 // relative base
	In   Queue
	Out  Queue

	status Status
	steps  int64
	log    *zap.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger that traces execution. Every instruction is
// logged at debug level, pauses and halts at info level.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// WithInput queues vals on the input of the machine.
func WithInput(vals ...int64) Option {
	return func(m *Machine) { m.In.Push(vals...) }
}

// NewMachine returns a Machine that executes mem, starting at address 0.
// The machine takes ownership of mem.
func NewMachine(mem Memory, opts ...Option) *Machine {
	m := &Machine{Mem: mem, log: zap.L()}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("intcode")
	return m
}

// Status is the execution state of a Machine.
type Status byte

const (
	// Running is the state of a machine that has not run yet, or is in
	// the middle of a Run.
	Running Status = iota
	// Paused machines are waiting for input.
	Paused
	// Halted machines have executed a halt instruction.
	Halted
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// Status returns the execution state of m.
func (m *Machine) Status() Status { return m.status }

// Halted reports whether m has executed a halt instruction.
func (m *Machine) Halted() bool { return m.status == Halted }

// Paused reports whether m is waiting for input.
func (m *Machine) Paused() bool { return m.status == Paused }

// Steps returns the number of instructions executed so far.
// An input instruction that paused the machine is not counted.
func (m *Machine) Steps() int64 { return m.steps }

// Send queues vals on the input of m.
func (m *Machine) Send(vals ...int64) { m.In.Push(vals...) }

// Receive removes and returns the oldest output value of m.
// It reports false if there is no output.
func (m *Machine) Receive() (int64, bool) { return m.Out.Pop() }

// Clone returns a deep copy of m. The copy shares nothing with m except its
// logger.
func (m *Machine) Clone() *Machine {
	c := *m
	c.Mem = m.Mem.Clone()
	c.In = m.In.Clone()
	c.Out = m.Out.Clone()
	return &c
}

// Run executes instructions until m pauses for input, halts, or faults.
// Calling Run on a paused machine retries the input instruction that paused
// it; calling Run on a halted machine does nothing.
func (m *Machine) Run() error {
	for {
		if err := m.Step(); err != nil {
			return err
		}
		if m.status != Running {
			return nil
		}
	}
}

// Step executes the instruction at m.IP. It only returns a non-nil error,
// always of type Fault, if that instruction cannot be executed; m.IP then
// still addresses it.
func (m *Machine) Step() (err error) {
	if m.status == Halted {
		return nil
	}
	m.status = Running
	if m.log == nil {
		m.log = zap.L().Named("intcode")
	}

	var (
		ip = m.IP
		in Instruction
	)
	defer func() {
		if e := recover(); e != nil {
			if code, ok := e.(FaultCode); ok {
				m.IP = ip
				err = Fault{
					FaultCode: code,
					Op:        in.Op,
					Addr:      ip,
				}
			} else {
				panic(e)
			}
		}
	}()

	in = Decode(m.Mem.Read(ip))

	if ce := m.log.Check(zap.DebugLevel, "exec"); ce != nil {
		ce.Write(
			zap.Int64("ip", ip),
			zap.Stringer("op", in),
			zap.Int64("base", m.Base),
		)
	}

	switch in.Op {
	case ADD:
		m.store(in, 3, m.load(in, 1)+m.load(in, 2))
	case MUL:
		m.store(in, 3, m.load(in, 1)*m.load(in, 2))
	case IN:
		// Resolve the destination first so that a fault leaves the
		// input queued.
		addr := m.addr(in, 1)
		v, ok := m.In.Pop()
		if !ok {
			m.status = Paused
			m.log.Info("paused", zap.Int64("ip", ip), zap.Int64("steps", m.steps))
			return nil
		}
		m.Mem.Write(addr, v)
	case OUT:
		m.Out.Push(m.load(in, 1))
	case JNZ:
		if m.load(in, 1) != 0 {
			m.jump(m.load(in, 2))
			return nil
		}
	case JZ:
		if m.load(in, 1) == 0 {
			m.jump(m.load(in, 2))
			return nil
		}
	case LT:
		m.store(in, 3, boolValue(m.load(in, 1) < m.load(in, 2)))
	case EQ:
		m.store(in, 3, boolValue(m.load(in, 1) == m.load(in, 2)))
	case ARB:
		m.Base += m.load(in, 1)
	case HLT:
		m.status = Halted
		m.steps++
		m.log.Info("halted", zap.Int64("ip", ip), zap.Int64("steps", m.steps))
		return nil
	default:
		panic(InvalidOpcode)
	}

	m.IP = ip + 1 + int64(in.Op.Params())
	m.steps++
	return nil
}

func (m *Machine) jump(addr int64) {
	m.IP = addr
	m.steps++
}

// load returns the effective value of the n-th parameter (1-based) of the
// instruction at m.IP.
func (m *Machine) load(in Instruction, n int) int64 {
	p := m.Mem.Read(m.IP + int64(n))
	switch mode := in.Modes[n-1]; mode {
	case Position:
		return m.Mem.Read(p)
	case Immediate:
		return p
	case Relative:
		return m.Mem.Read(m.Base + p)
	}
	panic(InvalidMode)
}

// store writes v to the address given by the n-th parameter (1-based) of the
// instruction at m.IP.
func (m *Machine) store(in Instruction, n int, v int64) {
	m.Mem.Write(m.addr(in, n), v)
}

// addr returns the address the n-th parameter of the instruction at m.IP
// writes to.
func (m *Machine) addr(in Instruction, n int) int64 {
	p := m.Mem.Read(m.IP + int64(n))
	var a int64
	switch in.Modes[n-1] {
	case Position:
		a = p
	case Relative:
		a = m.Base + p
	case Immediate:
		panic(IllegalWriteMode)
	default:
		panic(InvalidMode)
	}
	checkAddr(a)
	return a
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Fault is returned by Step and Run if an instruction cannot be executed.
type Fault struct {
	FaultCode
	Op   Op
	Addr int64
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s executing %s at %d", f.FaultCode, f.Op, f.Addr)
}

// FaultCode signifies the type of condition that stopped execution.
type FaultCode byte

const (
	NegativeAddress   FaultCode = 0x01
	InvalidOpcode     FaultCode = 0x02
	IllegalWriteMode  FaultCode = 0x03
	InvalidMode       FaultCode = 0x04
	AddressOutOfRange FaultCode = 0x05 // beyond MaxAddress
)

func (c FaultCode) String() string {
	if s, ok := map[FaultCode]string{
		NegativeAddress:   "negative address",
		InvalidOpcode:     "invalid opcode",
		IllegalWriteMode:  "write in immediate mode",
		InvalidMode:       "invalid parameter mode",
		AddressOutOfRange: "address out of range",
	}[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%.2x)", byte(c))
}
