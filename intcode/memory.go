package intcode

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Memory is the address space of a Machine. It grows on demand: reading or
// writing past the end zero-fills every cell up to the accessed address.
type Memory []int64

// MaxAddress is the highest address a Memory grows to.
const MaxAddress = 1<<24 - 1

// Read returns the value at addr, growing the memory if addr is beyond its
// end. It panics with NegativeAddress if addr < 0 and with
// AddressOutOfRange if addr > MaxAddress; Machine.Step recovers those
// panics into a Fault.
func (m *Memory) Read(addr int64) int64 {
	m.grow(addr)
	return (*m)[addr]
}

// Write stores v at addr, growing the memory if addr is beyond its end.
// It panics like Read on an invalid address.
func (m *Memory) Write(addr, v int64) {
	m.grow(addr)
	(*m)[addr] = v
}

func (m *Memory) grow(addr int64) {
	checkAddr(addr)
	if n := addr + 1; n > int64(len(*m)) {
		*m = append(*m, make(Memory, n-int64(len(*m)))...)
	}
}

func checkAddr(addr int64) {
	switch {
	case addr < 0:
		panic(NegativeAddress)
	case addr > MaxAddress:
		panic(AddressOutOfRange)
	}
}

// At returns the value at addr without growing the memory.
// Addresses outside the memory read as zero.
func (m Memory) At(addr int64) int64 {
	if addr < 0 || addr >= int64(len(m)) {
		return 0
	}
	return m[addr]
}

// Len returns the number of cells currently allocated.
func (m Memory) Len() int { return len(m) }

// Clone returns a deep copy of m.
func (m Memory) Clone() Memory { return slices.Clone(m) }

// Format writes m as comma-separated decimal integers, the same format
// ReadMemory accepts.
func (m Memory) Format(w io.Writer) error {
	_, err := io.WriteString(w, m.String())
	return err
}

func (m Memory) String() string {
	var b strings.Builder
	for i, v := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}
