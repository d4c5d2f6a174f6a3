package orchestration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aircasthq/panel-core/core/agents"
	"github.com/aircasthq/panel-core/core/events"
	"github.com/aircasthq/panel-core/core/producers"
)

const eventTimeout = 2 * time.Second

func testRegistry(t *testing.T, profiles ...agents.Agent) *agents.Registry {
	t.Helper()
	registry, err := agents.NewRegistry(profiles)
	if err != nil {
		t.Fatalf("failed to build test registry: %v", err)
	}
	return registry
}

func fastPolicy() TurnTakingPolicy {
	return TurnTakingPolicy{
		MaxTurnDuration:       2 * time.Second,
		MinTimeBetweenTurns:   time.Millisecond,
		InterruptionThreshold: 0.8,
		MaxHistoryLength:      10,
	}
}

type scriptedProducer struct {
	generate func(ctx context.Context, req producers.Request) (producers.Utterance, error)
}

func (p *scriptedProducer) Generate(ctx context.Context, req producers.Request) (producers.Utterance, error) {
	return p.generate(ctx, req)
}

func echoProducer() *scriptedProducer {
	return &scriptedProducer{generate: func(_ context.Context, req producers.Request) (producers.Utterance, error) {
		return producers.Utterance{Text: req.Agent.Name + " speaks"}, nil
	}}
}

// blockingSynthesizer holds the floor until the turn is cancelled, which is
// how a real voice backend behaves mid-playback.
type blockingSynthesizer struct{}

func (s *blockingSynthesizer) Speak(ctx context.Context, _ string, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func startConversation(t *testing.T, o *Orchestrator, opts ...RunOption) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := o.Run(ctx, opts...); err != nil {
		t.Fatalf("failed to launch orchestrator: %v", err)
	}
	if err := o.Start(ctx); err != nil {
		t.Fatalf("failed to start conversation: %v", err)
	}
}

func awaitEvent[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(eventTimeout):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestConversationAlternatesSpeakers(t *testing.T) {
	registry := testRegistry(t,
		agents.Agent{ID: "alex", Name: "Alex"},
		agents.Agent{ID: "jordan", Name: "Jordan"},
	)

	o, err := New(registry,
		WithUtteranceProducer(echoProducer()),
		WithPolicy(fastPolicy()),
	)
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	completed := make(chan events.TurnCompleted, 64)
	startConversation(t, o, WithTurnCompletedCallback(func(event events.TurnCompleted) {
		select {
		case completed <- event:
		default:
		}
	}))

	speakers := make([]string, 0, 6)
	for len(speakers) < 6 {
		event := awaitEvent(t, completed, "turn completion")
		speakers = append(speakers, event.Speaker)
	}

	seen := map[string]bool{}
	for i, speaker := range speakers {
		seen[speaker] = true
		if i > 0 && speakers[i-1] == speaker {
			t.Fatalf("speaker %q took two consecutive turns: %v", speaker, speakers)
		}
	}
	if !seen["alex"] || !seen["jordan"] {
		t.Fatalf("expected both agents to speak, got %v", speakers)
	}
}

func TestProducerFailureSkipsTurnWithoutStalling(t *testing.T) {
	registry := testRegistry(t,
		agents.Agent{ID: "alex", Name: "Alex"},
		agents.Agent{ID: "jordan", Name: "Jordan"},
	)

	producer := &scriptedProducer{generate: func(_ context.Context, req producers.Request) (producers.Utterance, error) {
		return producers.Utterance{}, fmt.Errorf("model unavailable for %s", req.Agent.ID)
	}}

	o, err := New(registry, WithUtteranceProducer(producer), WithPolicy(fastPolicy()))
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	skipped := make(chan events.TurnSkipped, 16)
	startConversation(t, o, WithTurnSkippedCallback(func(event events.TurnSkipped) {
		select {
		case skipped <- event:
		default:
		}
	}))

	first := awaitEvent(t, skipped, "first skipped turn")
	second := awaitEvent(t, skipped, "second skipped turn")
	if first.Speaker == second.Speaker {
		t.Fatalf("expected rotation to continue past a failed turn, got %q twice", first.Speaker)
	}

	for _, turn := range o.History(0) {
		if !turn.Skipped {
			t.Fatalf("expected only skipped ledger entries, got %+v", turn)
		}
		if turn.Err == "" {
			t.Fatalf("expected skipped turn to record the failure, got %+v", turn)
		}
	}
}

func TestNoProducerSkipsTurns(t *testing.T) {
	registry := testRegistry(t, agents.Agent{ID: "alex", Name: "Alex"})

	o, err := New(registry, WithPolicy(fastPolicy()))
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	skipped := make(chan events.TurnSkipped, 4)
	startConversation(t, o, WithTurnSkippedCallback(func(event events.TurnSkipped) {
		select {
		case skipped <- event:
		default:
		}
	}))

	event := awaitEvent(t, skipped, "skipped turn without a producer")
	if event.Speaker != "alex" {
		t.Fatalf("expected alex's turn to be skipped, got %q", event.Speaker)
	}
}

func TestUrgentAudienceMessagePreemptsTurn(t *testing.T) {
	registry := testRegistry(t,
		agents.Agent{ID: "alex", Name: "Alex", Keywords: []string{"kubernetes"}},
		agents.Agent{ID: "jordan", Name: "Jordan", Keywords: []string{"databases"}},
	)

	o, err := New(registry,
		WithUtteranceProducer(echoProducer()),
		WithSpeechSynthesizer(&blockingSynthesizer{}),
		WithPolicy(fastPolicy()),
	)
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	started := make(chan events.TurnStarted, 8)
	interrupted := make(chan events.TurnInterrupted, 4)
	completed := make(chan events.TurnCompleted, 8)
	startConversation(t, o,
		WithTurnStartedCallback(func(event events.TurnStarted) {
			select {
			case started <- event:
			default:
			}
		}),
		WithTurnInterruptedCallback(func(event events.TurnInterrupted) {
			select {
			case interrupted <- event:
			default:
			}
		}),
		WithTurnCompletedCallback(func(event events.TurnCompleted) {
			select {
			case completed <- event:
			default:
			}
		}),
	)

	awaitEvent(t, started, "initial turn")

	if err := o.SubmitAudienceMessage(context.Background(), "what about kubernetes"); err != nil {
		t.Fatalf("failed to submit audience message: %v", err)
	}

	interruption := awaitEvent(t, interrupted, "turn interruption")
	if interruption.By != AudienceSpeaker {
		t.Fatalf("expected interruption by the audience, got %q", interruption.By)
	}

	audienceTurn := awaitEvent(t, completed, "audience turn completion")
	if !audienceTurn.IsAudience || audienceTurn.Text != "what about kubernetes" {
		t.Fatalf("expected the audience question on the ledger, got %+v", audienceTurn)
	}

	answer := awaitEvent(t, started, "matched agent taking the floor")
	if answer.Speaker != "alex" {
		t.Fatalf("expected the keyword-matched agent to answer, got %q", answer.Speaker)
	}
}

func TestCalmAudienceMessageQueuesUntilFloorOpens(t *testing.T) {
	registry := testRegistry(t,
		agents.Agent{ID: "alex", Name: "Alex", Keywords: []string{"kubernetes"}},
		agents.Agent{ID: "jordan", Name: "Jordan"},
	)

	policy := fastPolicy()
	policy.MaxTurnDuration = 150 * time.Millisecond

	o, err := New(registry,
		WithUtteranceProducer(echoProducer()),
		WithSpeechSynthesizer(&blockingSynthesizer{}),
		WithPolicy(policy),
	)
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	started := make(chan events.TurnStarted, 8)
	interrupted := make(chan events.TurnInterrupted, 4)
	completed := make(chan events.TurnCompleted, 8)
	startConversation(t, o,
		WithTurnStartedCallback(func(event events.TurnStarted) {
			select {
			case started <- event:
			default:
			}
		}),
		WithTurnInterruptedCallback(func(event events.TurnInterrupted) {
			select {
			case interrupted <- event:
			default:
			}
		}),
		WithTurnCompletedCallback(func(event events.TurnCompleted) {
			select {
			case completed <- event:
			default:
			}
		}),
	)

	awaitEvent(t, started, "initial turn")

	// No keywords match, no classifier: score zero, far below the threshold.
	if err := o.SubmitAudienceMessage(context.Background(), "thanks everyone"); err != nil {
		t.Fatalf("failed to submit audience message: %v", err)
	}

	// The in-progress turn runs into the ceiling, not an interruption by the
	// audience.
	ceiling := awaitEvent(t, interrupted, "max-duration ceiling")
	if ceiling.By != "" {
		t.Fatalf("expected ceiling truncation, got interruption by %q", ceiling.By)
	}

	audienceTurn := awaitEvent(t, completed, "queued audience question")
	if !audienceTurn.IsAudience {
		t.Fatalf("expected the queued audience question to be answered first, got %+v", audienceTurn)
	}
}

func TestMaxTurnDurationForcesCompletion(t *testing.T) {
	registry := testRegistry(t, agents.Agent{ID: "alex", Name: "Alex"})

	policy := fastPolicy()
	policy.MaxTurnDuration = 100 * time.Millisecond

	o, err := New(registry,
		WithUtteranceProducer(echoProducer()),
		WithSpeechSynthesizer(&blockingSynthesizer{}),
		WithPolicy(policy),
	)
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	interrupted := make(chan events.TurnInterrupted, 4)
	startConversation(t, o, WithTurnInterruptedCallback(func(event events.TurnInterrupted) {
		select {
		case interrupted <- event:
		default:
		}
	}))

	event := awaitEvent(t, interrupted, "ceiling interruption")
	if event.By != "" {
		t.Fatalf("expected no preempting participant for a ceiling truncation, got %q", event.By)
	}

	var truncated *Turn
	for _, turn := range o.History(0) {
		if turn.ID == event.TurnID {
			truncated = &turn
			break
		}
	}
	if truncated == nil {
		t.Fatalf("truncated turn %s missing from the ledger", event.TurnID)
	}
	if !truncated.Interrupted {
		t.Fatalf("expected the ledger entry to be marked interrupted, got %+v", truncated)
	}
	if truncated.Text != "Alex speaks" {
		t.Fatalf("expected the generated text to be preserved on truncation, got %q", truncated.Text)
	}
}

func TestStopAbandonsInFlightTurn(t *testing.T) {
	registry := testRegistry(t, agents.Agent{ID: "alex", Name: "Alex"})

	o, err := New(registry,
		WithUtteranceProducer(echoProducer()),
		WithSpeechSynthesizer(&blockingSynthesizer{}),
		WithPolicy(fastPolicy()),
	)
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	started := make(chan events.TurnStarted, 4)
	startConversation(t, o, WithTurnStartedCallback(func(event events.TurnStarted) {
		select {
		case started <- event:
		default:
		}
	}))

	awaitEvent(t, started, "in-flight turn")
	recorded := len(o.History(0))

	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("failed to stop conversation: %v", err)
	}

	if status := o.Status(); status.Running {
		t.Fatalf("expected the conversation to be stopped, got %+v", status.State)
	}
	if got := len(o.History(0)); got != recorded {
		t.Fatalf("expected the abandoned turn to stay off the ledger, had %d entries, now %d", recorded, got)
	}

	// Stopping again is a no-op success.
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("expected idempotent stop, got %v", err)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	registry := testRegistry(t, agents.Agent{ID: "alex", Name: "Alex"})

	o, err := New(registry, WithPolicy(fastPolicy()))
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	startedCount := 0
	startedSignal := make(chan struct{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := o.Run(ctx, WithEventCallback(func(event events.Event) {
		if event.Kind() == events.KindConversationStarted {
			startedCount++
			select {
			case startedSignal <- struct{}{}:
			default:
			}
		}
	})); err != nil {
		t.Fatalf("failed to launch orchestrator: %v", err)
	}

	if err := o.Start(ctx); err != nil {
		t.Fatalf("failed to start conversation: %v", err)
	}
	awaitEvent(t, startedSignal, "conversation start")

	if err := o.Start(ctx); err != nil {
		t.Fatalf("expected idempotent start, got %v", err)
	}
	if err := o.Stop(ctx); err != nil {
		t.Fatalf("failed to stop conversation: %v", err)
	}

	if startedCount != 1 {
		t.Fatalf("expected exactly one conversation start event, got %d", startedCount)
	}
}

func TestStatisticsSumToTotalTurns(t *testing.T) {
	registry := testRegistry(t,
		agents.Agent{ID: "alex", Name: "Alex", Keywords: []string{"kubernetes"}},
		agents.Agent{ID: "jordan", Name: "Jordan"},
	)

	o, err := New(registry, WithUtteranceProducer(echoProducer()), WithPolicy(fastPolicy()))
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	completed := make(chan events.TurnCompleted, 16)
	startConversation(t, o, WithTurnCompletedCallback(func(event events.TurnCompleted) {
		select {
		case completed <- event:
		default:
		}
	}))

	awaitEvent(t, completed, "first turn")

	if err := o.SubmitAudienceMessage(context.Background(), "what about kubernetes"); err != nil {
		t.Fatalf("failed to submit audience message: %v", err)
	}

	sawAudience := false
	for turns := 1; turns < 6; turns++ {
		event := awaitEvent(t, completed, "turn completion")
		if event.IsAudience {
			sawAudience = true
		}
	}
	if !sawAudience {
		t.Fatal("expected the audience question to be recorded as a turn")
	}

	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("failed to stop conversation: %v", err)
	}

	stats := o.Status().Statistics
	sum := 0
	for _, count := range stats.TurnsByAgent {
		sum += count
	}
	if sum != stats.TotalTurns {
		t.Fatalf("per-speaker counts sum to %d, total is %d", sum, stats.TotalTurns)
	}
	if stats.AgentTurns+stats.AudienceTurns != stats.TotalTurns {
		t.Fatalf("agent %d + audience %d != total %d", stats.AgentTurns, stats.AudienceTurns, stats.TotalTurns)
	}
	if stats.AudienceTurns == 0 {
		t.Fatal("expected at least one audience turn in the statistics")
	}
}

func TestRosterReplacementNarrowsRotation(t *testing.T) {
	registry := testRegistry(t,
		agents.Agent{ID: "alex", Name: "Alex"},
		agents.Agent{ID: "jordan", Name: "Jordan"},
		agents.Agent{ID: "casey", Name: "Casey"},
	)

	o, err := New(registry, WithUtteranceProducer(echoProducer()), WithPolicy(fastPolicy()))
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	completed := make(chan events.TurnCompleted, 64)
	startConversation(t, o, WithTurnCompletedCallback(func(event events.TurnCompleted) {
		select {
		case completed <- event:
		default:
		}
	}))

	awaitEvent(t, completed, "first turn")

	if err := o.SetActiveAgents(context.Background(), "casey"); err != nil {
		t.Fatalf("failed to replace roster: %v", err)
	}

	// Drain anything in flight from before the replacement, then expect only
	// casey.
	deadline := time.After(eventTimeout)
	caseyTurns := 0
	for caseyTurns < 3 {
		select {
		case event := <-completed:
			if event.Speaker == "casey" {
				caseyTurns++
			} else if caseyTurns > 0 {
				t.Fatalf("expected only casey after roster replacement, got %q", event.Speaker)
			}
		case <-deadline:
			t.Fatal("timed out waiting for the narrowed roster to rotate")
		}
	}
}

func TestControlValidation(t *testing.T) {
	registry := testRegistry(t, agents.Agent{ID: "alex", Name: "Alex"})

	o, err := New(registry, WithPolicy(fastPolicy()))
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	ctx := context.Background()

	if err := o.Start(ctx); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted before Run, got %v", err)
	}
	if err := o.SubmitAudienceMessage(ctx, "hello"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted before Run, got %v", err)
	}

	startConversation(t, o)

	if err := o.SubmitAudienceMessage(ctx, "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion for blank input, got %v", err)
	}

	var unknown *UnknownAgentError
	if err := o.SetActiveAgents(ctx, "alex", "nobody"); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownAgentError, got %v", err)
	} else if unknown.AgentID != "nobody" {
		t.Fatalf("expected the offending id in the error, got %q", unknown.AgentID)
	}

	var configuration *ConfigurationError
	if err := o.SetActiveAgents(ctx); !errors.As(err, &configuration) {
		t.Fatalf("expected ConfigurationError for emptying a running roster, got %v", err)
	}
}

func TestTestPromptBypassesLedger(t *testing.T) {
	registry := testRegistry(t, agents.Agent{ID: "alex", Name: "Alex"})

	o, err := New(registry, WithUtteranceProducer(echoProducer()), WithPolicy(fastPolicy()))
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	defer o.Close()

	text, err := o.TestPrompt(context.Background(), "alex", "say something")
	if err != nil {
		t.Fatalf("test prompt failed: %v", err)
	}
	if text != "Alex speaks" {
		t.Fatalf("unexpected test prompt response %q", text)
	}
	if got := len(o.History(0)); got != 0 {
		t.Fatalf("expected the ledger to stay empty after a test prompt, got %d entries", got)
	}

	var unknown *UnknownAgentError
	if _, err := o.TestPrompt(context.Background(), "nobody", "hi"); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownAgentError, got %v", err)
	}
}
