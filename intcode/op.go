package intcode

import "fmt"

// Op represents an Intcode opcode, the low two decimal digits of an
// instruction cell.
type Op int

const (
	ADD Op = 1
	MUL Op = 2
	IN  Op = 3
	OUT Op = 4
	JNZ Op = 5
	JZ  Op = 6
	LT  Op = 7
	EQ  Op = 8
	ARB Op = 9
	HLT Op = 99
)

var opNames = map[Op]string{
	ADD: "add",
	MUL: "mul",
	IN:  "in",
	OUT: "out",
	JNZ: "jnz",
	JZ:  "jz",
	LT:  "lt",
	EQ:  "eq",
	ARB: "arb",
	HLT: "hlt",
}

var opParams = map[Op]int{
	ADD: 3,
	MUL: 3,
	IN:  1,
	OUT: 1,
	JNZ: 2,
	JZ:  2,
	LT:  3,
	EQ:  3,
	ARB: 1,
	HLT: 0,
}

// Valid reports whether op is part of the instruction set.
func (op Op) Valid() bool {
	_, ok := opParams[op]
	return ok
}

// Params returns the number of parameter cells following the opcode cell.
// It returns 0 for invalid opcodes.
func (op Op) Params() int { return opParams[op] }

// Writes reports the 1-based index of the parameter op writes to,
// or 0 if op does not write to memory.
func (op Op) Writes() int {
	switch op {
	case ADD, MUL, LT, EQ:
		return 3
	case IN:
		return 1
	}
	return 0
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Mode is the addressing mode of a single parameter.
type Mode int

const (
	Position  Mode = 0 // parameter is an address
	Immediate Mode = 1 // parameter is the value itself
	Relative  Mode = 2 // parameter is an offset from the relative base
)

func (m Mode) String() string {
	switch m {
	case Position:
		return "position"
	case Immediate:
		return "immediate"
	case Relative:
		return "relative"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Instruction is a decoded instruction cell.
type Instruction struct {
	Op    Op
	Modes [3]Mode
}

// Decode splits an instruction cell into its opcode and parameter modes.
// Mode digits are read least-significant first from v/100; missing digits
// are Position. Decode does not validate the result.
func Decode(v int64) Instruction {
	in := Instruction{Op: Op(v % 100)}
	v /= 100
	for i := range in.Modes {
		in.Modes[i] = Mode(v % 10)
		v /= 10
	}
	return in
}

func (in Instruction) String() string {
	return fmt.Sprintf("%v%v", in.Op, in.Modes[:in.Op.Params()])
}
