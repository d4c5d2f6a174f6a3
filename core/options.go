package orchestration

import (
	"context"
	"time"

	"github.com/aircasthq/panel-core/core/agents"
	"github.com/aircasthq/panel-core/core/events"
	"github.com/aircasthq/panel-core/core/producers"
)

// UtteranceProducer generates what an agent says when granted the floor.
type UtteranceProducer interface {
	Generate(ctx context.Context, req producers.Request) (producers.Utterance, error)
}

// SpeechSynthesizer voices a produced utterance. Speak blocks until playback
// finishes or ctx is cancelled.
type SpeechSynthesizer interface {
	Speak(ctx context.Context, voice string, text string) error
}

// UrgencyClassifier scores an audience message's urgency in [0, 1]. It runs
// alongside keyword matching; the higher of the two scores wins.
type UrgencyClassifier interface {
	Assess(ctx context.Context, message string) (float64, error)
}

// SpeechToText turns live audience audio into transcripts that are fed into
// the conversation as audience messages.
type SpeechToText interface {
	Transcribe(ctx context.Context, transcripts chan<- string) error
	SendAudio(data []byte) error
}

type OrchestratorOption func(*Orchestrator)

// WithUtteranceProducer sets the generation backend for agent turns. Without
// one every granted turn is recorded as skipped.
func WithUtteranceProducer(producer UtteranceProducer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.producer.producer = producer
	}
}

// WithSpeechSynthesizer sets the voice backend. Without one turns complete
// silently as soon as their text is generated.
func WithSpeechSynthesizer(synthesizer SpeechSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speech.synthesizer = synthesizer
	}
}

// WithUrgencyClassifier augments keyword scoring of audience messages with a
// semantic urgency assessment.
func WithUrgencyClassifier(classifier UrgencyClassifier) OrchestratorOption {
	return func(o *Orchestrator) {
		o.urgency.classifier = classifier
	}
}

// WithAudienceFeed attaches a live transcription source whose transcripts are
// submitted as audience messages for the lifetime of a run.
func WithAudienceFeed(feed SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) {
		o.audienceFeed.feed = feed
	}
}

// WithPolicy overrides the default turn-taking rules.
func WithPolicy(policy TurnTakingPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.policy = policy
	}
}

// WithActiveAgents restricts the initial roster to the given ids, in the
// given order. By default every registered agent is active.
func WithActiveAgents(ids ...string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.initialRoster = ids
	}
}

// WithTestAgents replaces the registry, primarily for tests that need a
// throwaway panel without a config file.
func WithTestAgents(registry *agents.Registry) OrchestratorOption {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

type runOptions struct {
	onTurnStarted     func(events.TurnStarted)
	onTurnCompleted   func(events.TurnCompleted)
	onTurnSkipped     func(events.TurnSkipped)
	onTurnInterrupted func(events.TurnInterrupted)
	onPhaseChanged    func(events.PhaseChanged)
	onAudienceMessage func(events.AudienceMessageQueued)
	onRosterUpdated   func(events.RosterUpdated)
	onEvent           func(events.Event)
}

type RunOption func(*runOptions)

func WithTurnStartedCallback(callback func(events.TurnStarted)) RunOption {
	return func(opts *runOptions) { opts.onTurnStarted = callback }
}

func WithTurnCompletedCallback(callback func(events.TurnCompleted)) RunOption {
	return func(opts *runOptions) { opts.onTurnCompleted = callback }
}

func WithTurnSkippedCallback(callback func(events.TurnSkipped)) RunOption {
	return func(opts *runOptions) { opts.onTurnSkipped = callback }
}

func WithTurnInterruptedCallback(callback func(events.TurnInterrupted)) RunOption {
	return func(opts *runOptions) { opts.onTurnInterrupted = callback }
}

func WithPhaseChangedCallback(callback func(events.PhaseChanged)) RunOption {
	return func(opts *runOptions) { opts.onPhaseChanged = callback }
}

func WithAudienceMessageCallback(callback func(events.AudienceMessageQueued)) RunOption {
	return func(opts *runOptions) { opts.onAudienceMessage = callback }
}

func WithRosterUpdatedCallback(callback func(events.RosterUpdated)) RunOption {
	return func(opts *runOptions) { opts.onRosterUpdated = callback }
}

// WithEventCallback receives every event the conversation emits, after any
// type-specific callback has run.
func WithEventCallback(callback func(events.Event)) RunOption {
	return func(opts *runOptions) { opts.onEvent = callback }
}

// estimateOrDefault falls back to a word-rate estimate when the producer did
// not supply a spoken duration.
func estimateOrDefault(utterance producers.Utterance) time.Duration {
	if utterance.EstimatedDuration > 0 {
		return utterance.EstimatedDuration
	}
	return producers.EstimateSpokenDuration(utterance.Text)
}
