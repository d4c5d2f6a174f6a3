package orchestration

import (
	"fmt"
	"time"
)

// TurnTakingPolicy bundles the numeric turn-taking rules. It is loaded at
// startup and immutable for the lifetime of a run.
type TurnTakingPolicy struct {
	// MaxTurnDuration is a hard ceiling on a single turn. A turn that is
	// still speaking when it elapses is forcibly completed.
	MaxTurnDuration time.Duration
	// MinTimeBetweenTurns is the mandatory cooldown before any participant
	// may start a new turn.
	MinTimeBetweenTurns time.Duration
	// InterruptionThreshold is the urgency score (0-1) an audience message
	// must exceed to preempt an in-progress turn.
	InterruptionThreshold float64
	// MaxHistoryLength bounds the recent-turn context window handed to the
	// utterance producer. Older turns stay in the ledger.
	MaxHistoryLength int
}

// DefaultTurnTakingPolicy mirrors the rule defaults shipped in the stock
// agent configuration.
func DefaultTurnTakingPolicy() TurnTakingPolicy {
	return TurnTakingPolicy{
		MaxTurnDuration:       30 * time.Second,
		MinTimeBetweenTurns:   2 * time.Second,
		InterruptionThreshold: 0.8,
		MaxHistoryLength:      10,
	}
}

func (p TurnTakingPolicy) Validate() error {
	if p.MaxTurnDuration <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("maxTurnDuration must be positive, got %s", p.MaxTurnDuration)}
	}
	if p.MinTimeBetweenTurns < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("minTimeBetweenTurns must not be negative, got %s", p.MinTimeBetweenTurns)}
	}
	if p.InterruptionThreshold < 0 || p.InterruptionThreshold > 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("interruptionThreshold must be within [0, 1], got %g", p.InterruptionThreshold)}
	}
	if p.MaxHistoryLength <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("maxHistoryLength must be positive, got %d", p.MaxHistoryLength)}
	}
	return nil
}
