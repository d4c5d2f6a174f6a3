package orchestration

import (
	"context"
	"strings"
	"time"
)

// Start moves the conversation on air. Starting an already running
// conversation is a no-op success; starting with an empty roster fails with a
// [ConfigurationError].
func (o *Orchestrator) Start(ctx context.Context) error {
	reply := make(chan error, 1)
	return o.await(ctx, startCommand{reply: reply}, reply)
}

// Stop takes the conversation off air and abandons any in-flight turn.
// Stopping an already stopped conversation is a no-op success.
func (o *Orchestrator) Stop(ctx context.Context) error {
	reply := make(chan error, 1)
	return o.await(ctx, stopCommand{reply: reply}, reply)
}

// SetActiveAgents replaces the roster atomically. Every id must exist in the
// registry, otherwise the call fails with an [UnknownAgentError] and the
// roster is left untouched. Emptying the roster is refused while the
// conversation is running.
func (o *Orchestrator) SetActiveAgents(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, ok := o.registry.Get(id); !ok {
			return &UnknownAgentError{AgentID: id}
		}
	}

	if !o.runtime.started.Load() {
		o.roster.Replace(ids)
		for _, id := range ids {
			o.stats.trackSpeaker(id)
		}
		return nil
	}

	reply := make(chan error, 1)
	return o.await(ctx, rosterCommand{ids: ids, reply: reply}, reply)
}

// SubmitAudienceMessage injects an audience question into the conversation.
// The message is scored against the active agents' keywords (and the urgency
// classifier when one is configured); a score above the interruption
// threshold preempts the current turn, anything else queues for the next
// open floor.
func (o *Orchestrator) SubmitAudienceMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyQuestion
	}

	if !o.runtime.started.Load() {
		return ErrNotStarted
	}
	if o.runtime.isClosed() {
		return ErrClosed
	}

	_, keywordScore := o.bestAudienceMatch(text)
	score := max(keywordScore, o.urgency.assess(ctx, text))

	if !o.runtime.enqueue(audienceCommand{text: text, score: score, queuedAt: time.Now()}) {
		return ErrClosed
	}
	return nil
}

// SendAudio forwards captured audience audio to the configured transcription
// feed. A no-op without one.
func (o *Orchestrator) SendAudio(data []byte) error {
	return o.audienceFeed.SendAudio(data)
}

func (o *Orchestrator) await(ctx context.Context, command schedulerCommand, reply chan error) error {
	if !o.runtime.started.Load() {
		return ErrNotStarted
	}
	if !o.runtime.enqueue(command) {
		return ErrClosed
	}

	select {
	case err := <-reply:
		return err
	case <-o.runtime.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
