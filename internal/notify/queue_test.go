package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(time.Minute)

	q.Push("first", TypeSuccess)
	q.Push("second", TypeError)
	q.Push("third", TypeInfo)

	active := q.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "first", active[0].Message)
	assert.Equal(t, "second", active[1].Message)
	assert.Equal(t, "third", active[2].Message)
	assert.Equal(t, TypeError, active[1].Type)
}

func TestQueueExpiry(t *testing.T) {
	q := NewQueue(20 * time.Millisecond)

	q.Push("short-lived", TypeInfo)
	require.Len(t, q.Active(), 1)

	assert.Eventually(t, func() bool {
		return len(q.Active()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestQueueIndependentExpiry(t *testing.T) {
	q := NewQueue(50 * time.Millisecond)

	q.Push("older", TypeInfo)
	time.Sleep(30 * time.Millisecond)
	q.Push("newer", TypeInfo)

	assert.Eventually(t, func() bool {
		active := q.Active()
		return len(active) == 1 && active[0].Message == "newer"
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return len(q.Active()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCenterCreatesQueuePerSession(t *testing.T) {
	c := NewCenter(time.Minute)

	a := c.Queue("session-a")
	b := c.Queue("session-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, c.Queue("session-a"))

	a.Push("only for a", TypeSuccess)
	assert.Len(t, a.Active(), 1)
	assert.Empty(t, b.Active())
}

func TestCenterDrop(t *testing.T) {
	c := NewCenter(time.Minute)

	q := c.Queue("session-a")
	q.Push("message", TypeSuccess)

	c.Drop("session-a")

	// a fresh queue replaces the dropped one
	assert.Empty(t, c.Queue("session-a").Active())
}
