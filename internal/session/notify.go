package session

import (
	"log/slog"
	"sync"
	"time"
)

// Level is a notification severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	ID      int       `json:"id"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifications is a bounded, concurrency-safe log of notifications. The
// oldest entries are dropped once the limit is reached.
type Notifications struct {
	mu    sync.Mutex
	limit int
	next  int
	items []Notification
}

// NewNotifications keeps at most limit entries (50 if limit <= 0).
func NewNotifications(limit int) *Notifications {
	if limit <= 0 {
		limit = 50
	}
	return &Notifications{limit: limit}
}

// Notify appends a notification and logs it.
func (n *Notifications) Notify(level Level, title, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	note := Notification{ID: n.next, Level: level, Title: title, Message: message, At: time.Now().UTC()}
	n.items = append(n.items, note)
	if len(n.items) > n.limit {
		n.items = n.items[len(n.items)-n.limit:]
	}

	if level == LevelError {
		slog.Warn("notification", "title", title, "message", message)
	} else {
		slog.Debug("notification", "title", title, "message", message)
	}
	return note
}

// List returns notifications with an id greater than after, oldest first.
func (n *Notifications) List(after int) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, 0, len(n.items))
	for _, note := range n.items {
		if note.ID > after {
			out = append(out, note)
		}
	}
	return out
}

// Last returns the newest notification.
func (n *Notifications) Last() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.items) == 0 {
		return Notification{}, false
	}
	return n.items[len(n.items)-1], true
}
