package intcode

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRun(t *testing.T) {
	c := newRunTestCase
	for i, c := range []*runTestCase{
		c("1,0,0,0,99").want().mem(2, 0, 0, 0, 99).halted(),
		c("2,3,0,3,99").want().mem(2, 3, 0, 6, 99).halted(),
		c("2,4,4,5,99,0").want().mem(2, 4, 4, 5, 99, 9801).halted(),
		c("1,1,1,4,99,5,6,0,99").want().mem(30, 1, 1, 4, 2, 5, 6, 0, 99).halted(),
		c("1,9,10,3,2,3,11,0,99,30,40,50").want().
			mem(3500, 9, 10, 70, 2, 3, 11, 0, 99, 30, 40, 50).halted(),
		c("1002,4,3,4,33").want().mem(1002, 4, 3, 4, 99).halted(),
		c("1101,100,-1,4,0").want().mem(1101, 100, -1, 4, 99).halted(),

		// Position and immediate mode comparisons.
		c("3,9,8,9,10,9,4,9,99,-1,8").in(8).want().out(1).halted(),
		c("3,9,8,9,10,9,4,9,99,-1,8").in(7).want().out(0).halted(),
		c("3,9,7,9,10,9,4,9,99,-1,8").in(5).want().out(1).halted(),
		c("3,9,7,9,10,9,4,9,99,-1,8").in(9).want().out(0).halted(),
		c("3,3,1108,-1,8,3,4,3,99").in(8).want().out(1).halted(),
		c("3,3,1108,-1,8,3,4,3,99").in(-8).want().out(0).halted(),
		c("3,3,1107,-1,8,3,4,3,99").in(3).want().out(1).halted(),
		c("3,3,1107,-1,8,3,4,3,99").in(80).want().out(0).halted(),

		// Jumps.
		c("3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9").in(0).want().out(0).halted(),
		c("3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9").in(5).want().out(1).halted(),
		c("3,3,1105,-1,9,1101,0,0,12,4,12,99,1").in(0).want().out(0).halted(),
		c("3,3,1105,-1,9,1101,0,0,12,4,12,99,1").in(-3).want().out(1).halted(),
		c(largerExample).in(7).want().out(999).halted(),
		c(largerExample).in(8).want().out(1000).halted(),
		c(largerExample).in(9).want().out(1001).halted(),

		// Relative mode and large values.
		c(quine).want().out(memValues(quine)...).base(16).halted(),
		c("1102,34915192,34915192,7,4,7,99,0").want().out(1219070632396864).halted(),
		c("104,1125899906842624,99").want().out(1125899906842624).halted(),
		c("109,19,204,-34,99").base(2000).at(1985, 42).want().out(42).base(2019).halted(),
		c("109,5,21101,3,4,-2,4,3,99").want().mem(109, 5, 21101, 7, 4, -2, 4, 3, 99).out(7).base(5).halted(),
		c("203,3,99").in(17).want().mem(203, 3, 99, 17).halted(),

		// Pauses.
		c("3,0,4,0,99").want().paused().ip(0),
		c("4,5,3,0,99,42").want().out(42).paused().ip(2),
		c("3,0,4,0,99").in(6).want().out(6).halted(),

		// Faults.
		c("42").want().
			fault(Fault{FaultCode: InvalidOpcode, Op: 42, Addr: 0}),
		c("1101,1,1,7,-1").want().mem(1101, 1, 1, 7, -1, 0, 0, 2).
			fault(Fault{FaultCode: InvalidOpcode, Op: -1, Addr: 4}),
		c("1101,1,1,-1,99").want().
			fault(Fault{FaultCode: NegativeAddress, Op: ADD, Addr: 0}),
		c("4,-3,99").want().
			fault(Fault{FaultCode: NegativeAddress, Op: OUT, Addr: 0}),
		c("109,-10,204,0,99").want().base(-10).
			fault(Fault{FaultCode: NegativeAddress, Op: OUT, Addr: 2}),
		c("11101,1,1,5,99").want().
			fault(Fault{FaultCode: IllegalWriteMode, Op: ADD, Addr: 0}),
		c("103,1,99").in(5).want().in(5).
			fault(Fault{FaultCode: IllegalWriteMode, Op: IN, Addr: 0}),
		c("203,-1,99").in(5).want().in(5).
			fault(Fault{FaultCode: NegativeAddress, Op: IN, Addr: 0}),
		c("1101,1,1,4611686018427387904,99").want().
			fault(Fault{FaultCode: AddressOutOfRange, Op: ADD, Addr: 0}),
		c("4,9223372036854775807,99").want().
			fault(Fault{FaultCode: AddressOutOfRange, Op: OUT, Addr: 0}),
		c("109,16777215,21101,1,1,1,99").want().base(MaxAddress).
			fault(Fault{FaultCode: AddressOutOfRange, Op: ADD, Addr: 2}),
		c("304,0,99").want().
			fault(Fault{FaultCode: InvalidMode, Op: OUT, Addr: 0}),
		c("1106,0,-4").want().
			fault(Fault{FaultCode: NegativeAddress, Op: 0, Addr: -4}),
	} {
		t.Run(fmt.Sprintf("%s_%d", Decode(c.m.Mem.At(c.m.IP)).Op, i), func(t *testing.T) {
			err := c.m.Run()
			if err != c.err {
				t.Fatalf("got error %v, want %v", err, c.err)
			}
			if c.w.Mem != nil {
				if g, w := c.m.Mem, c.w.Mem; g.String() != w.String() {
					t.Errorf("memory is\n\t%v\nwant\n\t%v", g, w)
				}
			}
			if g, w := c.m.Out.String(), c.w.Out.String(); g != w {
				t.Errorf("output is %v, want %v", g, w)
			}
			if g, w := c.m.In.String(), c.w.In.String(); g != w {
				t.Errorf("input left is %v, want %v", g, w)
			}
			if g, w := c.m.Status(), c.w.status; err == nil && g != w {
				t.Errorf("status is %v, want %v", g, w)
			}
			if c.checkIP {
				if g, w := c.m.IP, c.w.IP; g != w {
					t.Errorf("IP is %d, want %d", g, w)
				}
			}
			if g, w := c.m.Base, c.w.Base; g != w {
				t.Errorf("relative base is %d, want %d", g, w)
			}
			if c.err != nil {
				if g, w := c.m.IP, c.err.(Fault).Addr; g != w {
					t.Errorf("IP after fault is %d, want %d", g, w)
				}
			}
		})
	}
}

const (
	quine         = "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"
	largerExample = "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20,31," +
		"1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104," +
		"999,1105,1,46,1101,1000,1,20,4,20,1105,1,46,98,99"
)

type runTestCase struct {
	m, w    *Machine
	set     *Machine
	err     error
	checkIP bool
}

func newRunTestCase(prog string) *runTestCase {
	m, err := Parse(strings.NewReader(prog))
	if err != nil {
		panic(err)
	}
	c := &runTestCase{m: m, w: &Machine{}}
	c.set = c.m
	return c
}

func (c *runTestCase) in(vals ...int64) *runTestCase {
	c.set.In.Push(vals...)
	return c
}

func (c *runTestCase) out(vals ...int64) *runTestCase {
	c.set.Out.Push(vals...)
	return c
}

func (c *runTestCase) mem(vals ...int64) *runTestCase {
	c.set.Mem = Memory(vals)
	return c
}

func (c *runTestCase) at(addr, v int64) *runTestCase {
	c.set.Mem.Write(addr, v)
	return c
}

func (c *runTestCase) base(b int64) *runTestCase {
	c.set.Base = b
	if c.set == c.m {
		c.w.Base = b
	}
	return c
}

func (c *runTestCase) ip(addr int64) *runTestCase {
	c.set.IP = addr
	c.checkIP = true
	return c
}

func (c *runTestCase) halted() *runTestCase {
	c.set.status = Halted
	return c
}

func (c *runTestCase) paused() *runTestCase {
	c.set.status = Paused
	return c
}

func (c *runTestCase) want() *runTestCase {
	c.set = c.w
	return c
}

func (c *runTestCase) fault(err error) *runTestCase {
	c.err = err
	return c
}

func memValues(prog string) Memory {
	mem, err := ReadMemory(strings.NewReader(prog))
	if err != nil {
		panic(err)
	}
	return mem
}

func TestResume(t *testing.T) {
	m := NewMachine(memValues("3,0,4,0,3,1,4,1,99"))
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if !m.Paused() || m.IP != 0 || m.Steps() != 0 {
		t.Fatalf("after first run: status %v, IP %d, steps %d; want paused at 0 with no steps", m.Status(), m.IP, m.Steps())
	}

	// Resuming without input stays paused at the same instruction.
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if !m.Paused() || m.IP != 0 {
		t.Fatalf("after empty resume: status %v, IP %d; want paused at 0", m.Status(), m.IP)
	}

	m.Send(11)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if !m.Paused() || m.IP != 4 {
		t.Fatalf("after second run: status %v, IP %d; want paused at 4", m.Status(), m.IP)
	}
	if v, ok := m.Receive(); !ok || v != 11 {
		t.Errorf("Receive() = %d, %v; want 11, true", v, ok)
	}
	if _, ok := m.Receive(); ok {
		t.Error("Receive() reported a second output value")
	}

	m.Send(12)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if !m.Halted() {
		t.Fatalf("status %v, want halted", m.Status())
	}
	if v, _ := m.Receive(); v != 12 {
		t.Errorf("Receive() = %d, want 12", v)
	}
	if g, w := m.Steps(), int64(5); g != w {
		t.Errorf("Steps() = %d, want %d", g, w)
	}

	// Running a halted machine does nothing.
	m.Send(13)
	if err := m.Run(); err != nil || m.IP != 8 || m.In.Len() != 1 {
		t.Errorf("Run on halted machine: err %v, IP %d, input %v", err, m.IP, m.In)
	}
}

func TestStep(t *testing.T) {
	// The multiplication overwrites the halt instruction and the jump
	// loops back to the start, so this program never halts.
	m := NewMachine(memValues("1102,34,4,7,1105,1,0,99"))
	for i := 0; i < 100; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if m.Halted() {
			t.Fatalf("step %d: halted", i)
		}
	}
	if g, w := m.Mem[7], int64(136); g != w {
		t.Errorf("Mem[7] = %d, want %d", g, w)
	}
	if g, w := m.IP, int64(0); g != w {
		t.Errorf("IP = %d, want %d", g, w)
	}
}

func TestClone(t *testing.T) {
	orig := NewMachine(memValues("1,0,0,0,3,5,99"), WithInput(1, 2))
	orig.Out.Push(7)
	c := orig.Clone()
	c.Mem[1] = 4
	c.Send(3)
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	if g, w := orig.Mem.String(), "1,0,0,0,3,5,99"; g != w {
		t.Errorf("original memory changed to %v", g)
	}
	if g, w := orig.In.String(), "[1 2]"; g != w {
		t.Errorf("original input is %v, want %v", g, w)
	}
	if g, w := c.Mem[0], int64(4); g != w {
		t.Errorf("clone Mem[0] = %d, want %d", g, w)
	}
	if g, w := c.In.String(), "[2 3]"; g != w {
		t.Errorf("clone input is %v, want %v", g, w)
	}
	if !c.Halted() || orig.Status() != Running {
		t.Errorf("statuses: clone %v, original %v", c.Status(), orig.Status())
	}
	orig.Out.Pop()
	if c.Out.Len() != 1 {
		t.Error("clone output shares storage with the original")
	}
}

func TestTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := NewMachine(memValues("3,0,99"), WithLogger(zap.New(core)))
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	m.Send(1)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range logs.AllUntimed() {
		got = append(got, e.LoggerName+":"+e.Message)
	}
	want := "intcode:exec intcode:paused intcode:exec intcode:exec intcode:halted"
	if g := strings.Join(got, " "); g != want {
		t.Errorf("log entries are\n\t%s\nwant\n\t%s", g, want)
	}
}
