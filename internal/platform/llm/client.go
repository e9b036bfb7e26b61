package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrUnavailable signals that no LLM backend is configured.
var ErrUnavailable = errors.New("llm: no backend configured")

// Request describes a single chat completion call.
type Request struct {
	System      string
	User        string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Client produces chat completions within a per-call budget.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient implements Client against the OpenAI chat completion API.
type OpenAIClient struct {
	api     *openai.Client
	model   string
	limiter *rate.Limiter
}

// OpenAIDeps lists the dependencies required to build an OpenAIClient.
type OpenAIDeps struct {
	APIKey string
	Model  string
	// RequestsPerSecond caps the outbound call rate; zero means 5 rps.
	RequestsPerSecond float64
}

// NewOpenAIClient validates dependencies and returns an OpenAIClient.
func NewOpenAIClient(deps OpenAIDeps) (*OpenAIClient, error) {
	key := strings.TrimSpace(deps.APIKey)
	if key == "" {
		return nil, errors.New("llm: api key is required")
	}
	model := strings.TrimSpace(deps.Model)
	if model == "" {
		return nil, errors.New("llm: model is required")
	}
	rps := deps.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &OpenAIClient{
		api:     openai.NewClient(key),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}, nil
}

// Complete sends the chat completion request and returns the assistant reply text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty completion response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Disabled is a Client that always reports ErrUnavailable. It stands in when no
// API key is configured so callers exercise their deterministic fallbacks.
type Disabled struct{}

// Complete implements Client.
func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrUnavailable
}

// StripCodeFence removes a wrapping markdown code fence from an LLM reply.
// Replies like "```json\n{...}\n```" become "{...}".
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		first := strings.TrimSpace(trimmed[:idx])
		if first == "" || isFenceLanguage(first) {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func isFenceLanguage(tag string) bool {
	for _, r := range tag {
		if !('a' <= r && r <= 'z') {
			return false
		}
	}
	return true
}
