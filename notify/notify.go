// Package notify implements the notification channel used to surface
// transaction progress to a user: loading tickets that stay open while a
// step is pending, and one-shot success and error toasts.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TicketID identifies an open loading notification.
type TicketID string

// NewTicketID returns a fresh random ticket id.
func NewTicketID() TicketID {
	return TicketID(uuid.NewString())
}

// Content is the body of a notification.
type Content struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"` // block explorer URL, if any
}

func (c Content) String() string {
	if c.Link == "" {
		return c.Message
	}
	return c.Message + " " + c.Link
}

// Options tune how a toast is displayed.
type Options struct {
	Icon     string        `json:"icon,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Notifier is the notification channel.
type Notifier interface {
	Loading(c Content) TicketID
	Success(c Content, opts Options)
	Error(message string)
	Remove(id TicketID)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Loading(Content) TicketID { return NewTicketID() }
func (discard) Success(Content, Options) {}
func (discard) Error(string)             {}
func (discard) Remove(TicketID)          {}

// Multi fans notifications out to several notifiers. Tickets returned by
// Loading map to one ticket per child.
type Multi struct {
	children []Notifier

	mu      sync.Mutex
	tickets map[TicketID][]TicketID
}

// NewMulti creates a notifier writing to all children.
func NewMulti(children ...Notifier) *Multi {
	return &Multi{children: children, tickets: make(map[TicketID][]TicketID)}
}

func (m *Multi) Loading(c Content) TicketID {
	ids := make([]TicketID, len(m.children))
	for i, child := range m.children {
		ids[i] = child.Loading(c)
	}
	id := NewTicketID()
	m.mu.Lock()
	m.tickets[id] = ids
	m.mu.Unlock()
	return id
}

func (m *Multi) Success(c Content, opts Options) {
	for _, child := range m.children {
		child.Success(c, opts)
	}
}

func (m *Multi) Error(message string) {
	for _, child := range m.children {
		child.Error(message)
	}
}

func (m *Multi) Remove(id TicketID) {
	m.mu.Lock()
	ids, ok := m.tickets[id]
	delete(m.tickets, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	for i, child := range m.children {
		child.Remove(ids[i])
	}
}
