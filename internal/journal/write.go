package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/nsreg/internal/events"
)

// Entry is one journaled lifecycle event.
type Entry struct {
	Seq        int64
	Name       string
	Identifier string
	URI        string
	Async      bool
	Status     int
	LoadID     string

	// Payload is the canonical JSON of every event property.
	Payload string
}

// Append stamps e with the next sequence number and stores it.
// Rows with an existing sequence number are ignored.
func (j *Journal) Append(ctx context.Context, e *events.Event) (Entry, error) {
	payload, err := MarshalCanonical(eventPayload(e))
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: %w", e.Name, err)
	}

	entry := Entry{
		Seq:        j.clock.Next(),
		Name:       e.Name,
		Identifier: e.Identifier,
		URI:        e.URI,
		Async:      e.Async,
		Status:     e.Status,
		LoadID:     e.LoadID,
		Payload:    string(payload),
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO lifecycle_events
		(seq, name, identifier, uri, async, status, load_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		entry.Seq,
		entry.Name,
		entry.Identifier,
		entry.URI,
		entry.Async,
		entry.Status,
		entry.LoadID,
		entry.Payload,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("append %s: %w", e.Name, err)
	}
	return entry, nil
}

func eventPayload(e *events.Event) map[string]any {
	p := map[string]any{
		"event":      e.Name,
		"identifier": e.Identifier,
	}
	if e.Identifiers != nil {
		p["identifiers"] = e.Identifiers
	}
	if e.URI != "" {
		p["uri"] = e.URI
		p["async"] = e.Async
	}
	if e.Name == events.IncludeError {
		p["status"] = e.Status
	}
	if e.LoadID != "" {
		p["load_id"] = e.LoadID
	}
	if len(e.Values) > 0 {
		p["values"] = e.Values
	}
	return p
}

// Source is anything lifecycle listeners can be added to, typically a
// *registry.Registry.
type Source interface {
	AddEventListener(name string, fn events.ListenerFunc) *events.Handle
}

// Attach journals every lifecycle event of src. Write failures are logged
// and never reach the dispatching operation.
func (j *Journal) Attach(ctx context.Context, src Source) {
	for _, name := range events.Names {
		src.AddEventListener(name, j.Listener(ctx))
	}
}

// Listener returns a listener appending each event it receives.
func (j *Journal) Listener(ctx context.Context) events.ListenerFunc {
	return func(e *events.Event) {
		if _, err := j.Append(ctx, e); err != nil {
			slog.Warn("journal append failed", "event", e.Name, "identifier", e.Identifier, "error", err)
		}
	}
}
