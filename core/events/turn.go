package events

import "time"

const (
	KindTurnStarted     Kind = "turn_state.started"
	KindTurnCompleted   Kind = "turn_state.completed"
	KindTurnSkipped     Kind = "turn_state.skipped"
	KindTurnInterrupted Kind = "turn_state.interrupted"
)

// TurnStarted marks a participant being granted the floor.
type TurnStarted struct {
	Base
	Speaker    string `json:"speaker"`
	IsAudience bool   `json:"isAudience"`
}

func NewTurnStarted(speaker string, isAudience bool) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), Speaker: speaker, IsAudience: isAudience}
}

// TurnCompleted marks a turn being appended to the ledger.
type TurnCompleted struct {
	Base
	TurnID     string        `json:"turnId"`
	Speaker    string        `json:"speaker"`
	Text       string        `json:"text"`
	IsAudience bool          `json:"isAudience"`
	Duration   time.Duration `json:"duration"`
}

func NewTurnCompleted(turnID, speaker, text string, isAudience bool, duration time.Duration) TurnCompleted {
	return TurnCompleted{
		Base:       NewBase(KindTurnCompleted),
		TurnID:     turnID,
		Speaker:    speaker,
		Text:       text,
		IsAudience: isAudience,
		Duration:   duration,
	}
}

// TurnSkipped marks a turn whose generation failed.
type TurnSkipped struct {
	Base
	TurnID  string `json:"turnId"`
	Speaker string `json:"speaker"`
	Reason  string `json:"reason"`
}

func NewTurnSkipped(turnID, speaker, reason string) TurnSkipped {
	return TurnSkipped{Base: NewBase(KindTurnSkipped), TurnID: turnID, Speaker: speaker, Reason: reason}
}

// TurnInterrupted marks an in-progress turn being truncated. By carries the
// preempting participant, or is empty when the max-duration ceiling fired.
type TurnInterrupted struct {
	Base
	TurnID  string `json:"turnId"`
	Speaker string `json:"speaker"`
	By      string `json:"by,omitempty"`
}

func NewTurnInterrupted(turnID, speaker, by string) TurnInterrupted {
	return TurnInterrupted{Base: NewBase(KindTurnInterrupted), TurnID: turnID, Speaker: speaker, By: by}
}
