// ABOUTME: Non-fatal user notifications and change events
// ABOUTME: ULID-identified notices kept in a bounded buffer plus stage-change listeners
package crm

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/advisor-crm/models"
)

// Level of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a message shown to the user, e.g. a failed mirror push.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier keeps the most recent notifications.
type Notifier struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	limit   int
	items   []Notification
	now     func() time.Time
}

// NewNotifier keeps up to limit notifications.
func NewNotifier(limit int) *Notifier {
	if limit <= 0 {
		limit = 100
	}
	return &Notifier{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		limit:   limit,
		now:     time.Now,
	}
}

// Notify records a notification and returns it.
func (n *Notifier) Notify(level Level, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	at := n.now()
	item := Notification{
		ID:      ulid.MustNew(ulid.Timestamp(at), n.entropy).String(),
		Level:   level,
		Message: message,
		At:      at,
	}
	n.items = append(n.items, item)
	if len(n.items) > n.limit {
		n.items = n.items[len(n.items)-n.limit:]
	}
	return item
}

// Recent returns the stored notifications, oldest first.
func (n *Notifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

// Drain returns and clears the stored notifications.
func (n *Notifier) Drain() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	return out
}

// EventType names a change event.
type EventType string

const (
	EventStageChanged  EventType = "client.stage_changed"
	EventClientSaved   EventType = "client.saved"
	EventClientDeleted EventType = "client.deleted"
	EventPotentialSet  EventType = "potential.updated"
)

// Event describes a committed change, delivered to listeners such as the
// web socket hub.
type Event struct {
	Type     EventType            `json:"type"`
	ClientID int64                `json:"clientId"`
	From     models.WorkflowStage `json:"from,omitempty"`
	To       models.WorkflowStage `json:"to,omitempty"`
	Client   *models.Client       `json:"client,omitempty"`
	At       time.Time            `json:"at"`
}

// Listener receives events synchronously; it must not block.
type Listener func(Event)
