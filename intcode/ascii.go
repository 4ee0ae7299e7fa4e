package intcode

import (
	"strconv"
	"strings"
)

// LoadASCII queues the character codes of text on the input of m, followed
// by a newline unless text already ends with one.
func (m *Machine) LoadASCII(text string) {
	for _, r := range text {
		m.In.Push(int64(r))
	}
	if !strings.HasSuffix(text, "\n") {
		m.In.Push('\n')
	}
}

// ReceiveASCII drains the output of m. Values in the range 0-255 are
// returned as characters of text; every other value is returned, in order,
// in values.
func (m *Machine) ReceiveASCII() (text string, values []int64) {
	var b strings.Builder
	for _, v := range m.Out.Drain() {
		if v >= 0 && v < 256 {
			b.WriteRune(rune(v))
		} else {
			values = append(values, v)
		}
	}
	return b.String(), values
}

// DumpASCII drains the output of m like ReceiveASCII and returns it in
// display form: the text, followed by each value outside the character
// range in decimal on a line of its own.
func (m *Machine) DumpASCII() string {
	text, values := m.ReceiveASCII()
	if len(values) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	for _, v := range values {
		b.WriteString(strconv.FormatInt(v, 10))
		b.WriteByte('\n')
	}
	return b.String()
}
