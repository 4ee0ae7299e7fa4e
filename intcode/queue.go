package intcode

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Queue is an unbounded FIFO of values connecting a Machine to whatever
// feeds its input or consumes its output. The zero value is an empty queue.
type Queue struct {
	vals []int64
	head int
}

// Push appends vals to the back of the queue.
func (q *Queue) Push(vals ...int64) {
	if q.head > 0 && q.head == len(q.vals) {
		q.vals, q.head = q.vals[:0], 0
	}
	q.vals = append(q.vals, vals...)
}

// Pop removes and returns the value at the front of the queue.
// It reports false if the queue is empty.
func (q *Queue) Pop() (int64, bool) {
	if q.head == len(q.vals) {
		return 0, false
	}
	v := q.vals[q.head]
	q.head++
	if q.head == len(q.vals) {
		q.vals, q.head = q.vals[:0], 0
	}
	return v, true
}

// Peek returns the value at the front of the queue without removing it.
func (q *Queue) Peek() (int64, bool) {
	if q.head == len(q.vals) {
		return 0, false
	}
	return q.vals[q.head], true
}

// Len returns the number of queued values.
func (q *Queue) Len() int { return len(q.vals) - q.head }

// Drain removes and returns every queued value, oldest first.
func (q *Queue) Drain() []int64 {
	vals := slices.Clone(q.vals[q.head:])
	q.vals, q.head = q.vals[:0], 0
	return vals
}

// Values returns the queued values without removing them.
// The returned slice must not be modified.
func (q *Queue) Values() []int64 { return q.vals[q.head:] }

// Clone returns an independent copy of q.
func (q *Queue) Clone() Queue {
	return Queue{vals: slices.Clone(q.vals[q.head:])}
}

func (q Queue) String() string {
	return fmt.Sprint(q.vals[q.head:])
}
