package intcode

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// stateMagic prefixes the binary encoding of a Machine.
const stateMagic = "ICM1"

// MarshalBinary encodes the state of m: status, instruction pointer,
// relative base, step count, memory and both queues. The logger is not
// part of the state.
func (m *Machine) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, len(stateMagic)+1+binary.MaxVarintLen64*(6+len(m.Mem)+m.In.Len()+m.Out.Len()))
	b = append(b, stateMagic...)
	b = append(b, byte(m.status))
	b = binary.AppendVarint(b, m.IP)
	b = binary.AppendVarint(b, m.Base)
	b = binary.AppendVarint(b, m.steps)
	b = appendValues(b, m.Mem)
	b = appendValues(b, m.In.Values())
	b = appendValues(b, m.Out.Values())
	return b, nil
}

func appendValues(b []byte, vals []int64) []byte {
	b = binary.AppendUvarint(b, uint64(len(vals)))
	for _, v := range vals {
		b = binary.AppendVarint(b, v)
	}
	return b
}

// UnmarshalBinary restores a state encoded by MarshalBinary into m.
// The logger of m is left unchanged.
func (m *Machine) UnmarshalBinary(data []byte) error {
	if len(data) < len(stateMagic)+1 || string(data[:len(stateMagic)]) != stateMagic {
		return errors.New("not an intcode machine state")
	}
	d := stateDecoder{b: data[len(stateMagic):]}
	status := Status(d.b[0])
	if status > Halted {
		return errors.Errorf("invalid machine status %d", status)
	}
	d.b = d.b[1:]
	var (
		ip    = d.varint()
		base  = d.varint()
		steps = d.varint()
		mem   = d.values()
		in    = d.values()
		out   = d.values()
	)
	if d.err != nil {
		return errors.Wrap(d.err, "decoding machine state")
	}
	if len(d.b) != 0 {
		return errors.Errorf("decoding machine state: %d trailing bytes", len(d.b))
	}
	m.status, m.IP, m.Base, m.steps = status, ip, base, steps
	m.Mem = mem
	m.In, m.Out = Queue{vals: in}, Queue{vals: out}
	return nil
}

type stateDecoder struct {
	b   []byte
	err error
}

func (d *stateDecoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.b)
	if n <= 0 {
		d.err = errors.New("truncated or malformed varint")
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *stateDecoder) values() []int64 {
	if d.err != nil {
		return nil
	}
	n, k := binary.Uvarint(d.b)
	if k <= 0 {
		d.err = errors.New("truncated or malformed length")
		return nil
	}
	d.b = d.b[k:]
	if n > uint64(len(d.b)) {
		d.err = errors.Errorf("length %d exceeds remaining %d bytes", n, len(d.b))
		return nil
	}
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = d.varint()
	}
	return vals
}
