package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider implements StreamingProvider for Google's Gemini API.
type GeminiProvider struct {
	apiKey      string
	model       string
	temperature float32
	opts        []option.ClientOption
}

// NewGeminiProvider creates a Gemini provider. Extra client options are
// appended after the API key.
func NewGeminiProvider(apiKey, model string, temperature float64, opts ...option.ClientOption) (*GeminiProvider, error) {
	if err := requireKey("gemini", apiKey); err != nil {
		return nil, err
	}
	return &GeminiProvider{
		apiKey:      apiKey,
		model:       model,
		temperature: float32(temperature),
		opts:        opts,
	}, nil
}

// chat opens a client and a chat session primed with everything but the
// final user message, which is returned for sending.
func (g *GeminiProvider) chat(ctx context.Context, messages []Message) (*genai.Client, *genai.ChatSession, genai.Part, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.opts...)...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	system, history, last := splitGeminiMessages(messages)

	model := client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history
	return client, cs, genai.Text(last), nil
}

// Complete sends messages to Gemini and returns the response text.
func (g *GeminiProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	client, cs, last, err := g.chat(ctx, messages)
	if err != nil {
		return "", err
	}
	defer client.Close()

	resp, err := cs.SendMessage(ctx, last)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return responseText(resp), nil
}

// CompleteStream streams Gemini's reply chunk by chunk.
func (g *GeminiProvider) CompleteStream(ctx context.Context, messages []Message) <-chan StreamDelta {
	ch := make(chan StreamDelta)
	go func() {
		defer close(ch)

		client, cs, last, err := g.chat(ctx, messages)
		if err != nil {
			send(ctx, ch, StreamDelta{Err: err})
			return
		}
		defer client.Close()

		iter := cs.SendMessageStream(ctx, last)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				send(ctx, ch, StreamDelta{Done: true})
				return
			}
			if err != nil {
				send(ctx, ch, StreamDelta{Err: classifyGeminiError(err)})
				return
			}
			if text := responseText(resp); text != "" {
				if !send(ctx, ch, StreamDelta{Token: text}) {
					return
				}
			}
		}
	}()
	return ch
}

// splitGeminiMessages separates the system instruction, the prior turns,
// and the message to send. Gemini knows only the "user" and "model" roles.
func splitGeminiMessages(messages []Message) (string, []*genai.Content, string) {
	var (
		system []string
		turns  []Message
	)
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}

	var last string
	if n := len(turns); n > 0 && turns[n-1].Role != RoleAssistant {
		last = turns[n-1].Content
		turns = turns[:n-1]
	}

	history := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(system, "\n\n"), history, last
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func classifyGeminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return unauthorized("gemini", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "API_KEY_INVALID") || strings.Contains(msg, "API key not valid") {
		return unauthorized("gemini", err)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
