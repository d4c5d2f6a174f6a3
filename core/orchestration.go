// Package orchestration decides who speaks on a live multi-agent panel: it
// schedules turns, arbitrates interruptions, keeps the append-only turn
// ledger and live statistics, and exposes the control surface the dashboard
// drives.
package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/aircasthq/panel-core/core/agents"
	"github.com/aircasthq/panel-core/core/producers"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Orchestrator struct {
	registry *agents.Registry
	policy   TurnTakingPolicy

	// producer is the generation facade; turns without one are skipped.
	producer *utteranceProducer
	// speech is the synthesis facade; optional.
	speech *speechSynthesis
	// urgency is the optional semantic classifier for audience messages.
	urgency *urgencyAssessment
	// audienceFeed is the optional live transcription source.
	audienceFeed *audienceFeed

	ledger *turnLedger
	stats  *statistics
	state  *conversationState
	roster *activeRoster

	initialRoster []string

	runtime *schedulerRuntime
	emit    eventEmitter

	closeOnce   sync.Once
	baseContext context.Context
}

// Status is the consistent snapshot returned by [Orchestrator.Status].
type Status struct {
	Running      bool              `json:"running"`
	State        ConversationState `json:"state"`
	Statistics   Statistics        `json:"statistics"`
	ActiveAgents []string          `json:"activeAgents"`
}

func New(registry *agents.Registry, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		registry:     registry,
		policy:       DefaultTurnTakingPolicy(),
		producer:     newUtteranceProducer(nil),
		speech:       newSpeechSynthesis(nil),
		urgency:      newUrgencyAssessment(nil),
		audienceFeed: newAudienceFeed(nil),
		ledger:       &turnLedger{},
		stats:        newStatistics(),
		state:        newConversationState(),
		roster:       &activeRoster{},
		runtime:      newSchedulerRuntime(),
		emit:         noopEventEmitter,
		baseContext:  context.Background(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil || o.registry.Len() == 0 {
		return nil, &ConfigurationError{Reason: "at least one agent is required"}
	}
	if err := o.policy.Validate(); err != nil {
		return nil, err
	}

	ids := o.initialRoster
	if len(ids) == 0 {
		ids = o.registry.IDs()
	}
	for _, id := range ids {
		if _, ok := o.registry.Get(id); !ok {
			return nil, &UnknownAgentError{AgentID: id}
		}
	}
	o.roster.Replace(ids)
	for _, id := range ids {
		o.stats.trackSpeaker(id)
	}

	return o, nil
}

// Run launches the scheduler loop and any configured audience feed. The
// conversation itself does not begin until [Orchestrator.Start] is called.
//
// ctx is the base context for producer and synthesis calls; cancelling it
// closes the orchestrator.
//
// Contract: call Run at most once per orchestrator instance.
func (o *Orchestrator) Run(ctx context.Context, opts ...RunOption) error {
	if o.runtime.isClosed() {
		return ErrClosed
	}

	options := runOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	o.emit = newCallbackEventEmitter(options)

	o.baseContext = ctx
	o.runtime.configure(ctx)

	if started := o.runtime.start(o); started {
		go func() {
			<-ctx.Done()
			o.Close()
		}()
	}

	if err := o.audienceFeed.Start(ctx, func(transcript string) error {
		return o.SubmitAudienceMessage(ctx, transcript)
	}); err != nil {
		recordedErr := fmt.Errorf("failed to start audience feed: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
	}

	return nil
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.runtime.end()

		if err := o.audienceFeed.Close(o.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close audience feed: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := o.speech.Close(o.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close speech synthesizer: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := o.producer.Close(o.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close utterance producer: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		o.runtime.waitUntilEnded()
	})
}

// Status returns a point-in-time snapshot of conversation state, statistics
// and the active roster.
func (o *Orchestrator) Status() Status {
	state := o.state.Snapshot()
	return Status{
		Running:      state.Phase != PhaseStopped,
		State:        state,
		Statistics:   o.stats.Snapshot(state.CurrentSpeaker),
		ActiveAgents: o.roster.IDs(),
	}
}

// History returns the most recent turns in ledger order. limit <= 0 returns
// the full ledger.
func (o *Orchestrator) History(limit int) []Turn {
	return o.ledger.Recent(limit)
}

// Turns iterates over every ledger entry from the earliest towards the
// latest, for audit and export.
func (o *Orchestrator) Turns(yield func(Turn) bool) {
	o.ledger.Values(yield)
}

// ListAgents returns every registered agent profile in configuration order,
// active or not.
func (o *Orchestrator) ListAgents() []agents.Agent {
	return o.registry.All()
}

func (o *Orchestrator) Policy() TurnTakingPolicy { return o.policy }

// TestPrompt asks the producer for a one-off utterance by the given agent,
// bypassing the scheduler entirely. Nothing is recorded in the ledger.
func (o *Orchestrator) TestPrompt(ctx context.Context, agentID, prompt string) (string, error) {
	agent, ok := o.registry.Get(agentID)
	if !ok {
		return "", &UnknownAgentError{AgentID: agentID}
	}

	ctx, span := tracer.Start(ctx, "test prompt")
	defer span.End()

	utterance, err := o.producer.generate(ctx, producers.Request{
		Agent:   agent,
		Prompt:  prompt,
		Context: o.contextWindow(),
	})
	if err != nil {
		return "", err
	}

	return utterance.Text, nil
}
