package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/shaping"
)

// ErrEmptyAPIKey is returned when the API key is missing.
var ErrEmptyAPIKey = errors.New("API key cannot be empty")

// DefaultModel is used when the configuration does not name one.
const DefaultModel = "gpt-4o-mini"

// Config holds the configuration for the OpenAI adapter.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the chat model used for shaping, e.g., "gpt-4o-mini".
	Model string
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// OpenAIShaper implements the shaping.Shaper interface using the
// OpenAI chat completion API.
type OpenAIShaper struct {
	client *openai.Client
	model  string
}

// NewOpenAIShaper creates a new OpenAI shaping adapter.
func NewOpenAIShaper(config Config) (*OpenAIShaper, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.Model == "" {
		config.Model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIShaper{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
	}, nil
}

// Model returns the configured chat model.
func (s *OpenAIShaper) Model() string {
	return s.model
}

// Shape implements the shaping.Shaper interface. Failures are wrapped
// with ErrShapingFailure so callers can recognize a collaborator
// problem and fall back.
func (s *OpenAIShaper) Shape(ctx context.Context, task, block string, budget int, opts ...shaping.Option) (string, error) {
	options := shaping.DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	model := s.model
	if options.Model != "" {
		model = options.Model
	}

	log.DebugContext(ctx, "Shaping context block",
		"model", model,
		"budget", budget,
		"block_length", len(block),
	)

	request := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(budget),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt(task, block),
			},
		},
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	}

	response, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		log.ErrorContext(ctx, "Chat completion failed", "error", err)
		return "", errors.Wrap(errors.ErrShapingFailure, "completing chat request (%v)", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.Wrap(errors.ErrShapingFailure, "no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", errors.Wrap(errors.ErrShapingFailure, "empty response content")
	}

	log.DebugContext(ctx, "Shaped context block",
		"tokens", response.Usage.TotalTokens,
		"result_length", len(content),
	)

	return content, nil
}

func systemPrompt(budget int) string {
	return fmt.Sprintf(
		"You rewrite retrieved memory notes into a compact context block. "+
			"Preserve every fact and identifier, merge overlapping notes, and never invent content. "+
			"Respond with plain text only, at most %d characters.", budget)
}

func userPrompt(task, block string) string {
	if task == "" {
		return block
	}
	return fmt.Sprintf("Task: %s\n\nNotes:\n%s", task, block)
}
