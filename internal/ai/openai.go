package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements StreamingProvider for OpenAI-compatible chat
// completion APIs (OpenAI, Groq, OpenRouter, LM Studio, ...).
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIProvider creates a provider. An empty baseURL means api.openai.com.
func NewOpenAIProvider(apiKey, model, baseURL string, temperature float64) (*OpenAIProvider, error) {
	if err := requireKey("openai", apiKey); err != nil {
		return nil, err
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: float32(temperature),
	}, nil
}

func (o *OpenAIProvider) request(messages []Message, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: o.temperature,
		Stream:      stream,
	}
}

// Complete sends messages and returns the response text.
func (o *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(messages, false))
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream streams the reply from the chat completions endpoint.
func (o *OpenAIProvider) CompleteStream(ctx context.Context, messages []Message) <-chan StreamDelta {
	ch := make(chan StreamDelta)
	go func() {
		defer close(ch)

		stream, err := o.client.CreateChatCompletionStream(ctx, o.request(messages, true))
		if err != nil {
			send(ctx, ch, StreamDelta{Err: classifyOpenAIError(err)})
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, StreamDelta{Done: true})
				return
			}
			if err != nil {
				send(ctx, ch, StreamDelta{Err: classifyOpenAIError(err)})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(ctx, ch, StreamDelta{Token: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()
	return ch
}

func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return unauthorized("openai", err)
	}
	return fmt.Errorf("openai request failed: %w", err)
}
