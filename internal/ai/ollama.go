package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL = "http://localhost:11434"
	ollamaChatPath   = "/api/chat"
	defaultTimeout   = 120 * time.Second
)

// ollamaRequest is the request body sent to the Ollama API.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

// ollamaMessage is a single message in the Ollama chat format.
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaOptions controls generation parameters.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// ollamaResponse is one response object; streaming replies send one per line.
type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// OllamaProvider implements StreamingProvider for the Ollama local API.
type OllamaProvider struct {
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

// NewOllamaProvider creates a provider that talks to an Ollama instance.
// An empty baseURL means the local default.
func NewOllamaProvider(model, baseURL string, temperature float64) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temperature,
		// Streaming replies are bounded by the request context, not a client timeout.
		httpClient: &http.Client{},
	}
}

func (o *OllamaProvider) post(ctx context.Context, messages []Message, stream bool) (*http.Response, error) {
	ollamaMsgs := make([]ollamaMessage, len(messages))
	for i, m := range messages {
		ollamaMsgs[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(ollamaRequest{
		Model:    o.model,
		Messages: ollamaMsgs,
		Stream:   stream,
		Options:  ollamaOptions{Temperature: o.temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+ollamaChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("could not reach Ollama at %s (is it running? start with: ollama serve): %w", o.baseURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(respBody))
		var parsed ollamaResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != "" {
			msg = parsed.Error
		}
		if strings.Contains(msg, "model") && strings.Contains(msg, "not found") {
			return nil, fmt.Errorf("model %q not found: run ollama pull %s", o.model, o.model)
		}
		return nil, fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, msg)
	}

	return resp, nil
}

// Complete sends messages to Ollama and returns the response text.
func (o *OllamaProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := o.post(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return ollamaResp.Message.Content, nil
}

// CompleteStream reads Ollama's newline-delimited JSON stream.
func (o *OllamaProvider) CompleteStream(ctx context.Context, messages []Message) <-chan StreamDelta {
	ch := make(chan StreamDelta)
	go func() {
		defer close(ch)

		resp, err := o.post(ctx, messages, true)
		if err != nil {
			send(ctx, ch, StreamDelta{Err: err})
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				send(ctx, ch, StreamDelta{Err: fmt.Errorf("failed to parse stream chunk: %w", err)})
				return
			}
			if chunk.Error != "" {
				send(ctx, ch, StreamDelta{Err: fmt.Errorf("Ollama stream error: %s", chunk.Error)})
				return
			}
			if chunk.Message.Content != "" {
				if !send(ctx, ch, StreamDelta{Token: chunk.Message.Content}) {
					return
				}
			}
			if chunk.Done {
				send(ctx, ch, StreamDelta{Done: true})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			send(ctx, ch, StreamDelta{Err: fmt.Errorf("stream interrupted: %w", err)})
			return
		}
		send(ctx, ch, StreamDelta{Err: fmt.Errorf("stream ended before completion")})
	}()
	return ch
}
