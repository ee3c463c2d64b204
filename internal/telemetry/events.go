// Package telemetry defines the typed event structs that flow over the
// /ws stream between linkhubd and its clients (browsers and linkctl watch).
package telemetry

import (
	"time"

	"github.com/large-farva/linkhub/internal/presence"
)

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat EventType = "heartbeat"
	EventState     EventType = "state"
	EventPresence  EventType = "presence"
	EventLog       EventType = "log"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NewEvent stamps an envelope with the current time.
func NewEvent(t EventType, component string) Event {
	return Event{Type: t, TS: NowTS(), Component: component}
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	Presence      string `json:"presence"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StateTransition is emitted whenever the daemon or the presence
// connection changes state (e.g. connecting -> open).
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

// PresenceUpdate carries the full store state after every write.
type PresenceUpdate struct {
	Event
	Connected bool               `json:"connected"`
	Stale     bool               `json:"stale"`
	Error     string             `json:"error,omitempty"`
	Snapshot  *presence.Snapshot `json:"snapshot"`
}

// NewPresenceUpdate builds the event for a store state.
func NewPresenceUpdate(st presence.State) PresenceUpdate {
	return PresenceUpdate{
		Event:     NewEvent(EventPresence, "presence"),
		Connected: st.Connected,
		Stale:     st.Stale,
		Error:     st.Error,
		Snapshot:  st.Snapshot,
	}
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}
