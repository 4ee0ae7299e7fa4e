package intcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBinary(t *testing.T) {
	m := NewMachine(memValues("109,3,3,100,4,100,3,0,99"), WithInput(-42))
	m.Out.Push(7)
	require.NoError(t, m.Run())
	require.True(t, m.Paused())
	m.Send(5, 6)

	b, err := m.MarshalBinary()
	require.NoError(t, err)

	var r Machine
	require.NoError(t, r.UnmarshalBinary(b))
	assert.Equal(t, m.Mem, r.Mem)
	assert.Equal(t, m.IP, r.IP)
	assert.Equal(t, m.Base, r.Base)
	assert.Equal(t, m.Steps(), r.Steps())
	assert.Equal(t, m.Status(), r.Status())
	assert.Equal(t, m.In.Values(), r.In.Values())
	assert.Equal(t, m.Out.Values(), r.Out.Values())

	require.NoError(t, r.Run())
	assert.True(t, r.Halted())
	assert.Equal(t, []int64{7, -42}, r.Out.Drain())
	assert.Equal(t, int64(5), r.Mem[0])
}

func TestUnmarshalBinaryErrors(t *testing.T) {
	m := NewMachine(memValues("1,0,0,0,99"))
	b, err := m.MarshalBinary()
	require.NoError(t, err)

	for name, data := range map[string][]byte{
		"empty":     nil,
		"magic":     append([]byte("XXXX"), b[4:]...),
		"status":    append(append([]byte(stateMagic), 9), b[5:]...),
		"truncated": b[:len(b)-1],
		"trailing":  append(append([]byte{}, b...), 0),
	} {
		var r Machine
		assert.Error(t, r.UnmarshalBinary(data), name)
	}
}
