package orchestration

import (
	"errors"
	"testing"
	"time"
)

func TestPolicyValidate(t *testing.T) {
	if err := DefaultTurnTakingPolicy().Validate(); err != nil {
		t.Fatalf("expected the default policy to validate, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TurnTakingPolicy)
	}{
		{"zero max turn duration", func(p *TurnTakingPolicy) { p.MaxTurnDuration = 0 }},
		{"negative cooldown", func(p *TurnTakingPolicy) { p.MinTimeBetweenTurns = -time.Second }},
		{"threshold above one", func(p *TurnTakingPolicy) { p.InterruptionThreshold = 1.5 }},
		{"negative threshold", func(p *TurnTakingPolicy) { p.InterruptionThreshold = -0.1 }},
		{"zero history length", func(p *TurnTakingPolicy) { p.MaxHistoryLength = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := DefaultTurnTakingPolicy()
			tc.mutate(&policy)

			var configuration *ConfigurationError
			if err := policy.Validate(); !errors.As(err, &configuration) {
				t.Fatalf("expected a ConfigurationError, got %v", err)
			}
		})
	}
}

func TestZeroCooldownIsValid(t *testing.T) {
	policy := DefaultTurnTakingPolicy()
	policy.MinTimeBetweenTurns = 0
	if err := policy.Validate(); err != nil {
		t.Fatalf("expected zero cooldown to be allowed, got %v", err)
	}
}
