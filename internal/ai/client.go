// Package ai handles communication with hosted and local LLM chat APIs.
// The model is instructed to answer with START_FILE / END_FILE blocks that
// the extract package turns into project files.
package ai

import (
	"context"
	"fmt"

	"github.com/arin/webviber/internal/config"
)

// MaxHistory caps the unpinned conversation sent with each request.
const MaxHistory = 20

// SystemPrompt instructs the model to emit complete files in the block format.
const SystemPrompt = `You are WEB VIBER, an expert web developer AI. You generate code from the user's conversational requests.

When the user asks for a project (for example "create a react app"), generate a complete, working project structure with every file it needs, including configuration files such as package.json as well as the source code.
Later messages may ask for changes. Read the request in the context of the earlier conversation and the code you already produced.

File output format. Every file must be wrapped exactly like this:

START_FILE: path/to/file.ext
...complete file content...
END_FILE

Example:

START_FILE: index.html
<!DOCTYPE html>
<html>
<head>
  <title>My App</title>
</head>
<body>
  <div id="root"></div>
</body>
</html>
END_FILE

Rules:
- Always output the full content of every file. Never use placeholders or omit code.
- Include every file needed for a basic, runnable project.
- When changing a file, output the whole file again with the change applied.
- Do not write explanations between or after file blocks. Anything you must say that is not code goes before the first block.
- Never write the text END_FILE inside a file's content.`

// Client sends conversations to the configured provider.
type Client struct {
	provider Provider
}

// NewClient builds a client for the provider named in cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case config.ProviderGemini, "":
		p, err = NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.Temperature)
	case config.ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature)
	case config.ProviderOllama:
		p = NewOllamaProvider(cfg.Model, cfg.BaseURL, cfg.Temperature)
	default:
		err = config.ValidateProvider(cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &Client{provider: p}, nil
}

// NewClientWithProvider wraps an existing provider. Used by tests.
func NewClientWithProvider(p Provider) *Client {
	return &Client{provider: p}
}

// GenerateStream sends the conversation and streams the model's reply.
// Pinned leading messages are always sent; the rest is capped to the last
// MaxHistory messages, starting on a user turn.
func (c *Client) GenerateStream(ctx context.Context, history []ChatMessage) <-chan StreamDelta {
	return c.streamOrFallback(ctx, buildMessages(history))
}

// Generate sends the conversation and returns the whole reply.
func (c *Client) Generate(ctx context.Context, history []ChatMessage) (string, error) {
	return collectStream(c.GenerateStream(ctx, history))
}

// streamOrFallback streams from providers that support it and otherwise
// delivers the full Complete() response as a single token.
func (c *Client) streamOrFallback(ctx context.Context, messages []Message) <-chan StreamDelta {
	if sp, ok := c.provider.(StreamingProvider); ok {
		return sp.CompleteStream(ctx, messages)
	}

	ch := make(chan StreamDelta, 2)
	go func() {
		defer close(ch)
		text, err := c.provider.Complete(ctx, messages)
		if err != nil {
			ch <- StreamDelta{Err: err}
			return
		}
		ch <- StreamDelta{Token: text}
		ch <- StreamDelta{Done: true}
	}()
	return ch
}

func buildMessages(history []ChatMessage) []Message {
	n := 0
	for n < len(history) && history[n].Pinned {
		n++
	}
	pinned, rest := history[:n], history[n:]

	if len(rest) > MaxHistory {
		rest = rest[len(rest)-MaxHistory:]
		// Gemini rejects a history that opens with a model turn.
		for len(rest) > 0 && rest[0].Role != RoleUser {
			rest = rest[1:]
		}
	}

	messages := make([]Message, 0, len(pinned)+len(rest)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt})
	for _, m := range pinned {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}
	for _, m := range rest {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

func requireKey(provider, key string) error {
	if key == "" {
		return fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
	}
	return nil
}
