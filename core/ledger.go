package orchestration

import (
	"sync"
	"time"
)

// AudienceSpeaker is the speaker id recorded for audience turns.
const AudienceSpeaker = "audience"

// Turn is one produced utterance, immutable once appended to the ledger.
type Turn struct {
	ID      string `json:"id"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`

	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`

	IsAudience bool `json:"isAudience,omitempty"`
	// Estimated is the producer's spoken-duration estimate, zero when the
	// producer did not supply one.
	Estimated time.Duration `json:"estimated,omitempty"`

	// Skipped marks a turn whose generation failed; Err carries the marker
	// recorded instead of text.
	Skipped bool   `json:"skipped,omitempty"`
	Err     string `json:"err,omitempty"`

	// Interrupted marks a turn that was truncated, either by a preempting
	// participant or by the max-duration ceiling.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Duration is the wall-clock length of the completed turn.
func (t Turn) Duration() time.Duration {
	return t.EndedAt.Sub(t.StartedAt)
}

// turnLedger is the append-only ordered record of completed turns.
//
// Appends keep timestamps monotonically non-decreasing; no turn is ever
// mutated or removed after append.
type turnLedger struct {
	mu    sync.RWMutex
	turns []Turn

	lastEndedAt time.Time
}

func (l *turnLedger) Append(turn Turn) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	if turn.StartedAt.Before(l.lastEndedAt) {
		turn.StartedAt = l.lastEndedAt
	}
	if turn.EndedAt.Before(turn.StartedAt) {
		turn.EndedAt = turn.StartedAt
	}

	l.turns = append(l.turns, turn)
	l.lastEndedAt = turn.EndedAt
	return turn
}

func (l *turnLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Recent returns the last n turns in original order. n <= 0 or n larger than
// the ledger returns everything.
func (l *turnLedger) Recent(n int) []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if n > 0 && n < len(l.turns) {
		start = len(l.turns) - n
	}

	recent := make([]Turn, len(l.turns)-start)
	copy(recent, l.turns[start:])
	return recent
}

// Values is an iterator over every stored turn from the earliest towards the
// latest, for audit and export.
func (l *turnLedger) Values(yield func(Turn) bool) {
	for _, turn := range l.Recent(0) {
		if !yield(turn) {
			return
		}
	}
}
