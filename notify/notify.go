package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Kind classifies a notification the way the UI toast does.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

// Notifier is the fire-and-forget toast collaborator.
type Notifier interface {
	Notify(title, description string, kind Kind)
}

// Event is one captured notification.
type Event struct {
	Title       string
	Description string
	Kind        Kind
}

// LogNotifier writes notifications to the structured log. Used when no
// browser session is attached (startup, background refetches).
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(title, description string, kind Kind) {
	event := n.Logger.Info()
	if kind == Error {
		event = n.Logger.Warn()
	}
	event.Str("title", title).Str("kind", string(kind)).Msg(description)
}

// Recorder collects notifications in memory. The console drains it into
// flash messages per response; tests inspect it directly.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(title, description string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Title: title, Description: description, Kind: kind})
}

// Drain returns all captured events and clears the recorder.
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

// Events returns a copy of the captured events without clearing them.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
