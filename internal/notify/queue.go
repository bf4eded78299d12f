// Package notify holds the ephemeral user-facing notification queues.
// Notifications are process-local, FIFO in insertion order, and expire
// independently after a fixed duration. There is no deduplication, no
// priority and no cap on the concurrent count.
package notify

import (
	"sync"
	"time"

	"victor-smm-api/pkg/uid"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Notification types.
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeInfo    = "info"
)

// Notification is one transient user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue is the notification queue of one session.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	ttl   time.Duration
}

// NewQueue creates a queue whose entries expire after ttl.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{ttl: ttl}
}

// Push appends a notification and schedules its expiry. Each entry gets
// its own timer; timers are never cancelled early.
func (q *Queue) Push(message, typ string) Notification {
	n := Notification{
		ID:        uid.New(),
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()

	time.AfterFunc(q.ttl, func() { q.remove(n.ID) })

	return n
}

// Active returns the not-yet-expired notifications in insertion order.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Center maps session tokens to their notification queues.
type Center struct {
	mu     sync.Mutex
	queues map[string]*Queue
	ttl    time.Duration
}

// NewCenter creates a notification center with the given per-entry TTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		queues: make(map[string]*Queue),
		ttl:    ttl,
	}
}

// Queue returns the queue for a session, creating it on first use.
func (c *Center) Queue(sessionToken string) *Queue {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[sessionToken]
	if !ok {
		q = NewQueue(c.ttl)
		c.queues[sessionToken] = q
	}
	return q
}

// Drop discards a session's queue. Called on logout.
func (c *Center) Drop(sessionToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.queues, sessionToken)
}
