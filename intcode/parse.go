package intcode

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyProgram is returned by ReadMemory if the program text is empty.
var ErrEmptyProgram = errors.New("empty program")

// InvalidMemoryValueError is returned by ReadMemory if a token of the
// program text is not an integer.
type InvalidMemoryValueError struct {
	Index int    // position of the token in the program
	Token string // the offending token
	Err   error  // the error returned by strconv
}

func (e *InvalidMemoryValueError) Error() string {
	return fmt.Sprintf("invalid memory value %q at index %d", e.Token, e.Index)
}

func (e *InvalidMemoryValueError) Unwrap() error { return e.Err }

// ReadMemory reads a program as a single line of comma-separated signed
// decimal integers. Whitespace around the values is ignored.
func ReadMemory(r io.Reader) (Memory, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading program")
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return nil, ErrEmptyProgram
	}
	tokens := strings.Split(text, ",")
	mem := make(Memory, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, &InvalidMemoryValueError{Index: i, Token: tok, Err: err}
		}
		mem[i] = v
	}
	return mem, nil
}

// Parse reads a program with ReadMemory and returns a Machine ready to
// run it.
func Parse(r io.Reader, opts ...Option) (*Machine, error) {
	mem, err := ReadMemory(r)
	if err != nil {
		return nil, err
	}
	return NewMachine(mem, opts...), nil
}
