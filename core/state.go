package orchestration

import (
	"sync"
	"time"
)

// Phase is the scheduler's current position in the turn-taking cycle.
type Phase string

const (
	// PhaseStopped means the system is not running.
	PhaseStopped Phase = "stopped"
	// PhaseIdle means the floor is open and the scheduler may grant it.
	PhaseIdle Phase = "idle"
	// PhaseSpeaking means exactly one participant is producing a turn.
	PhaseSpeaking Phase = "speaking"
	// PhaseCoolingDown means a turn just ended and the mandatory gap between
	// turns has not yet elapsed.
	PhaseCoolingDown Phase = "cooling_down"
)

// ConversationState is a point-in-time view of what is happening on air.
//
// CurrentSpeaker is non-empty exactly when Phase is [PhaseSpeaking].
type ConversationState struct {
	Phase           Phase     `json:"phase"`
	CurrentSpeaker  string    `json:"currentSpeaker,omitempty"`
	TurnStartedAt   time.Time `json:"turnStartedAt,omitempty"`
	LastTurnEndedAt time.Time `json:"lastTurnEndedAt,omitempty"`
}

// conversationState is the shared, snapshot-readable mirror of the state
// owned by the scheduler loop. The loop is the only writer; every other
// goroutine reads copies, never live references.
type conversationState struct {
	mu    sync.RWMutex
	state ConversationState
}

func newConversationState() *conversationState {
	return &conversationState{state: ConversationState{Phase: PhaseStopped}}
}

func (s *conversationState) Snapshot() ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *conversationState) publish(state ConversationState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
