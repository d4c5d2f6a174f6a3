package events

import "time"

// Kind identifies an event type on the wire. Kinds are namespaced by the
// part of the conversation they describe, e.g. "turn_state.completed".
type Kind string

// Event is implemented by every notification the orchestrator publishes.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and emission time shared by all events. The fields
// stay unexported so consumers read them through the Event interface and
// transports choose their own envelope.
type Base struct {
	kind      Kind
	timestamp time.Time
}

// NewBase stamps a Base with the given kind and the current time.
func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

func (b Base) Timestamp() time.Time { return b.timestamp }
