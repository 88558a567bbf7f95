package notify

import "sync"

// Kind distinguishes toast styles.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a single user-visible toast message.
type Notification struct {
	Kind    Kind
	Message string
}

// Notifier is the fire-and-forget toast contract used by the repository
// layer. Implementations must not block.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Center queues notifications until the next rendered page drains them.
type Center struct {
	mu      sync.Mutex
	pending []Notification
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	return &Center{}
}

func (c *Center) Success(message string) { c.push(KindSuccess, message) }

func (c *Center) Error(message string) { c.push(KindError, message) }

func (c *Center) push(kind Kind, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, Notification{Kind: kind, Message: message})
}

// Drain returns all queued notifications and clears the queue.
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}
