package orchestration

import (
	"context"

	"github.com/aircasthq/panel-core/core/agents"
	"github.com/aircasthq/panel-core/core/producers"
	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
)

// produceUtterance runs one turn's generation and playback off the scheduler
// loop. It reports back through the command queue; the loop decides whether
// the results still matter by comparing tokens.
func (o *Orchestrator) produceUtterance(ctx context.Context, token uint64, agent agents.Agent, prompt string) {
	ctx, span := tracer.Start(ctx, "produce turn")
	defer span.End()
	span.SetAttributes(attribute.String("turn.speaker", agent.ID))

	utterance, err := o.producer.generate(ctx, producers.Request{
		Agent:   agent,
		Prompt:  prompt,
		Context: o.contextWindow(),
	})
	if err != nil {
		o.runtime.enqueue(turnFinishedCommand{token: token, err: err})
		return
	}

	estimated := estimateOrDefault(utterance)
	o.runtime.enqueue(turnGeneratedCommand{token: token, text: utterance.Text, estimated: estimated})

	if err := o.speech.speak(ctx, agent.Voice, utterance.Text); err != nil {
		// Cancelled mid-playback; the scheduler already moved on.
		return
	}

	o.runtime.enqueue(turnFinishedCommand{token: token, text: utterance.Text, estimated: estimated})
}

// contextWindow projects the most recent ledger turns into the bounded
// context handed to the producer. Skipped turns contribute nothing to the
// conversation and are left out.
func (o *Orchestrator) contextWindow() []producers.ContextTurn {
	recent := o.ledger.Recent(o.policy.MaxHistoryLength)

	window := make([]producers.ContextTurn, 0, len(recent))
	for _, turn := range recent {
		if turn.Skipped {
			continue
		}

		var contextTurn producers.ContextTurn
		if err := copier.Copy(&contextTurn, &turn); err != nil {
			continue
		}
		window = append(window, contextTurn)
	}
	return window
}
