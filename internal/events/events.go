// Package events carries lifecycle notifications from the exporter and the
// orchestrator to whoever is interested (logs, tests, the admin API).
package events

import "github.com/rs/zerolog"

// Event represents a lifecycle event.
// Minimal and stable: name + subject and optional fields via key/values.
type Event struct {
	Name    string
	Subject string
	Fields  map[string]any
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// Noop drops events.
type Noop struct{}

func (Noop) Publish(Event) {}

// OrNoop returns p, or Noop when p is nil.
func OrNoop(p Publisher) Publisher {
	if p == nil {
		return Noop{}
	}
	return p
}

// LogPublisher writes every event as a debug-level log line.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (l LogPublisher) Publish(e Event) {
	ev := l.Logger.Debug().Str("event", e.Name)
	if e.Subject != "" {
		ev = ev.Str("subject", e.Subject)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("event")
}
