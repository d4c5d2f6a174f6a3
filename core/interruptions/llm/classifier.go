// Package llm provides a model-backed urgency classifier for audience
// messages, complementing the deterministic keyword scorer.
package llm

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/aircasthq/panel-core/core/producers/openrouter"
)

//go:embed classifierInstr.tmpl
var urgencyClassifierSystemPrompt string

const defaultModel = "openai/gpt-4o-mini"

// Assessment is the structured output the model is constrained to.
type Assessment struct {
	Urgency float64 `json:"urgency" jsonschema:"title=Urgency,description=How urgently the message demands the floor on a scale from 0 to 1,minimum=0,maximum=1"`
}

// Classifier assesses audience-message urgency with a structured model
// prompt.
type Classifier struct {
	apiKey string
	model  string
}

type ClassifierOption func(*Classifier)

func WithModel(model string) ClassifierOption {
	return func(c *Classifier) { c.model = model }
}

func NewClassifier(apiKey string, opts ...ClassifierOption) *Classifier {
	classifier := &Classifier{apiKey: apiKey, model: defaultModel}
	for _, opt := range opts {
		opt(classifier)
	}
	return classifier
}

// Assess scores the message's urgency in [0, 1].
func (c *Classifier) Assess(ctx context.Context, message string) (float64, error) {
	ctx, span := tracer.Start(ctx, "assess urgency")
	defer span.End()

	assessment, err := openrouter.PromptJSONSchema(
		ctx,
		c.apiKey,
		c.model,
		message,
		urgencyClassifierSystemPrompt,
		Assessment{},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prompt urgency classifier: %w", err)
	}

	urgency := assessment.Urgency
	if urgency < 0 {
		urgency = 0
	}
	if urgency > 1 {
		urgency = 1
	}
	return urgency, nil
}
