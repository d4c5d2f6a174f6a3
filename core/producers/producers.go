// Package producers defines the utterance-producer contract the orchestrator
// generates turns through. Backends live in subpackages.
package producers

import (
	"strings"
	"time"

	"github.com/aircasthq/panel-core/core/agents"
)

// ContextTurn is one ledger turn projected into the bounded context window a
// producer receives.
type ContextTurn struct {
	Speaker    string
	Text       string
	IsAudience bool
	StartedAt  time.Time
}

// Request asks a producer for one utterance by the given agent.
type Request struct {
	Agent agents.Agent
	// Prompt is an explicit question to answer (audience routing, test
	// prompts). Empty means "continue the conversation".
	Prompt string
	// Context holds the most recent turns, oldest first, already bounded by
	// the policy's context window.
	Context []ContextTurn
}

// Utterance is a produced turn body.
type Utterance struct {
	Text string
	// EstimatedDuration approximates how long the text takes to speak.
	EstimatedDuration time.Duration
}

// wordsPerMinute is the speaking pace assumed when a backend has no better
// estimate of spoken duration.
const wordsPerMinute = 150

// EstimateSpokenDuration approximates how long the given text takes to say
// out loud at a conversational pace. Deterministic, floor of one second for
// any non-empty text.
func EstimateSpokenDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}

	estimate := time.Duration(words) * time.Minute / wordsPerMinute
	if estimate < time.Second {
		estimate = time.Second
	}
	return estimate
}
