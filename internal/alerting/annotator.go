package alerting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultGeminiBaseURL is Google's OpenAI-compatible endpoint for the
// Gemini models.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Annotator turns a raw alert message into a polished human-readable one.
type Annotator interface {
	Annotate(ctx context.Context, prompt string) (string, error)
}

// GeminiAnnotator calls Gemini through its OpenAI-compatible surface.
type GeminiAnnotator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewGeminiAnnotator(apiKey, baseURL, model string, timeout time.Duration) *GeminiAnnotator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GeminiAnnotator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

func (g *GeminiAnnotator) Annotate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("error generating content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// AnnotateStream streams the generated text chunk by chunk into emit.
// Stops early when emit returns an error (client went away).
func (g *GeminiAnnotator) AnnotateStream(ctx context.Context, prompt string, emit func(chunk string) error) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("error opening completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error receiving stream chunk: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if chunk := resp.Choices[0].Delta.Content; chunk != "" {
			if err := emit(chunk); err != nil {
				return err
			}
		}
	}
}
