package orchestration

import (
	"context"
	"fmt"

	"github.com/aircasthq/panel-core/core/producers"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type utteranceProducer struct {
	// producer stores the configured generation backend.
	producer UtteranceProducer
}

func newUtteranceProducer(producer UtteranceProducer) *utteranceProducer {
	return &utteranceProducer{producer: producer}
}

func (p *utteranceProducer) set(producer UtteranceProducer) {
	if p != nil {
		p.producer = producer
	}
}

func (p *utteranceProducer) isConfigured() bool {
	return p != nil && p.producer != nil
}

// generate produces the agent's utterance for the granted turn. An
// unconfigured producer is an error, not a stall: the scheduler records the
// turn as skipped and moves on.
func (p *utteranceProducer) generate(ctx context.Context, req producers.Request) (producers.Utterance, error) {
	if !p.isConfigured() {
		return producers.Utterance{}, &ProducerError{
			AgentID: req.Agent.ID,
			Err:     fmt.Errorf("no utterance producer configured"),
		}
	}

	utterance, err := p.producer.Generate(ctx, req)
	if err != nil {
		err = &ProducerError{AgentID: req.Agent.ID, Err: err}
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return producers.Utterance{}, err
	}

	return utterance, nil
}

func (p *utteranceProducer) Close(ctx context.Context) error {
	if !p.isConfigured() {
		return nil
	}

	switch c := p.producer.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close utterance producer: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close utterance producer: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
