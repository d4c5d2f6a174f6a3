package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aircasthq/panel-core/core/producers"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "openai/gpt-4o-mini"

	endMessage  = "[DONE]"
	chunkPrefix = "data:"
)

// Client produces agent utterances through the OpenRouter chat-completions
// API. A primary model plus an ordered fallback list; the first model to
// answer wins.
type Client struct {
	apiKey         string
	model          string
	fallbackModels []string
	baseURL        string
	templates      map[string]string

	httpClient *http.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithFallbackModels sets the models tried, in order, when the primary model
// fails.
func WithFallbackModels(models ...string) Option {
	return func(c *Client) { c.fallbackModels = append([]string(nil), models...) }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithPromptTemplates overrides the built-in prompt templates by name
// (system, continue, answer). Unknown names are ignored.
func WithPromptTemplates(templates map[string]string) Option {
	return func(c *Client) {
		if c.templates == nil {
			c.templates = map[string]string{}
		}
		for name, template := range templates {
			c.templates[name] = template
		}
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Generate produces one utterance for the requested agent, falling through
// the configured model list until one answers.
func (c *Client) Generate(ctx context.Context, req producers.Request) (producers.Utterance, error) {
	ctx, span := tracer.Start(ctx, "generate utterance")
	defer span.End()
	span.SetAttributes(attribute.String("request.agent", req.Agent.ID))

	messages := toMessages(c.systemPrompt(req.Agent), req.Context)
	messages = append(messages, message{
		Role:    messageRoleUser,
		Content: c.turnPrompt(req.Agent, req.Prompt),
	})

	var lastErr error
	for _, model := range append([]string{c.model}, c.fallbackModels...) {
		text, err := c.prompt(ctx, model, messages)
		if err != nil {
			if ctx.Err() != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return producers.Utterance{}, err
			}
			log.Println("Warning: model", model, "failed:", err)
			lastErr = err
			continue
		}

		span.SetAttributes(attribute.String("response.model", model))
		return producers.Utterance{
			Text:              text,
			EstimatedDuration: producers.EstimateSpokenDuration(text),
		}, nil
	}

	err := fmt.Errorf("all models failed: %w", lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return producers.Utterance{}, err
}

func (c *Client) prompt(ctx context.Context, model string, messages []message) (string, error) {
	reqBody := requestBody{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("non-OK HTTP status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var response strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))

		if len(chunk) == 0 {
			continue
		}
		if chunk == endMessage {
			break
		}

		var responseBody streamingResponseBody
		if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
			log.Println("Error unmarshalling JSON:", err)
			continue
		}
		if len(responseBody.Choices) == 0 {
			continue
		}

		response.WriteString(responseBody.Choices[0].Delta.Content)
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading streamed response: %w", err)
	}

	text := strings.TrimSpace(response.String())
	if text == "" {
		return "", errors.New("model returned an empty response")
	}

	return text, nil
}

type requestBody struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Role         string  `json:"role,omitempty"`
			Content      string  `json:"content,omitempty"`
			Reasoning    string  `json:"reasoning,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
