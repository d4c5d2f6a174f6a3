package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "conversation started", event: NewConversationStarted(), expected: KindConversationStarted},
		{name: "conversation stopped", event: NewConversationStopped(), expected: KindConversationStopped},
		{name: "phase changed", event: NewPhaseChanged("idle", "speaking"), expected: KindPhaseChanged},
		{name: "turn started", event: NewTurnStarted("alex", false), expected: KindTurnStarted},
		{name: "turn completed", event: NewTurnCompleted("id", "alex", "text", false, time.Second), expected: KindTurnCompleted},
		{name: "turn skipped", event: NewTurnSkipped("id", "alex", "reason"), expected: KindTurnSkipped},
		{name: "turn interrupted", event: NewTurnInterrupted("id", "alex", "audience"), expected: KindTurnInterrupted},
		{name: "audience message queued", event: NewAudienceMessageQueued("text", "alex", 0.5, false), expected: KindAudienceMessageQueued},
		{name: "audience message answered", event: NewAudienceMessageAnswered("text", "alex"), expected: KindAudienceMessageAnswered},
		{name: "roster updated", event: NewRosterUpdated([]string{"alex"}), expected: KindRosterUpdated},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatal("expected the constructor to stamp the event")
			}
		})
	}
}

func TestKindsAreNamespaced(t *testing.T) {
	kinds := []Kind{
		KindConversationStarted, KindConversationStopped, KindPhaseChanged,
		KindTurnStarted, KindTurnCompleted, KindTurnSkipped, KindTurnInterrupted,
		KindAudienceMessageQueued, KindAudienceMessageAnswered,
		KindRosterUpdated,
	}

	seen := map[Kind]bool{}
	for _, kind := range kinds {
		if !strings.Contains(string(kind), ".") {
			t.Fatalf("expected a namespaced kind, got %q", kind)
		}
		if seen[kind] {
			t.Fatalf("duplicate kind %q", kind)
		}
		seen[kind] = true
	}
}

func TestTurnInterruptedByIsOptional(t *testing.T) {
	ceiling := NewTurnInterrupted("id", "alex", "")

	raw, err := json.Marshal(ceiling)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	if strings.Contains(string(raw), `"by"`) {
		t.Fatalf("expected the by field to be omitted for ceiling truncations, got %s", raw)
	}

	preempted := NewTurnInterrupted("id", "alex", "audience")
	raw, err = json.Marshal(preempted)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	if !strings.Contains(string(raw), `"by":"audience"`) {
		t.Fatalf("expected the preempting participant in the payload, got %s", raw)
	}
}
