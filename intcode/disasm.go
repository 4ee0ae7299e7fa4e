package intcode

import (
	"fmt"
	"strings"
)

// Disassemble returns the instruction at addr in human readable form and the
// number of cells it occupies. It does not grow mem. Cells that do not hold
// a valid instruction are rendered as data.
func Disassemble(mem Memory, addr int64) (string, int) {
	v := mem.At(addr)
	in := Decode(v)
	if !in.Op.Valid() {
		return fmt.Sprintf("data %d", v), 1
	}
	var b strings.Builder
	b.WriteString(in.Op.String())
	for n := 1; n <= in.Op.Params(); n++ {
		if n == 1 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		p := mem.At(addr + int64(n))
		switch mode := in.Modes[n-1]; mode {
		case Position:
			fmt.Fprintf(&b, "[%d]", p)
		case Immediate:
			fmt.Fprintf(&b, "%d", p)
		case Relative:
			fmt.Fprintf(&b, "[rb%+d]", p)
		default:
			fmt.Fprintf(&b, "?%d:%d", int(mode), p)
		}
	}
	return b.String(), 1 + in.Op.Params()
}
