package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
)

// --- Ollama ---

func TestOllama_CompleteStream(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ollamaChatPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		for _, tok := range []string{"START_FILE: a.js\n", "x()", "\nEND_FILE"} {
			line, _ := json.Marshal(ollamaResponse{Message: ollamaMessage{Role: "assistant", Content: tok}})
			fmt.Fprintf(w, "%s\n", line)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider("llama3.2:latest", srv.URL, 0.2)
	result, err := collectStream(p.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "START_FILE: a.js\nx()\nEND_FILE" {
		t.Errorf("unexpected result %q", result)
	}
	if !got.Stream {
		t.Error("expected stream=true in request")
	}
	if got.Options.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", got.Options.Temperature)
	}
}

func TestOllama_StreamEndsEarly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"half"}}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider("m", srv.URL, 0)
	result, err := collectStream(p.CompleteStream(context.Background(), nil))
	if err == nil {
		t.Fatal("expected error for a stream without done")
	}
	if result != "half" {
		t.Errorf("expected partial 'half', got %q", result)
	}
}

func TestOllama_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider("nope", srv.URL, 0)
	_, err := p.Complete(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "ollama pull nope") {
		t.Errorf("expected pull hint, got %v", err)
	}
}

func TestOllama_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"whole reply"},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider("m", srv.URL+"/", 0)
	text, err := p.Complete(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "whole reply" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestOllama_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOllamaProvider("m", url, 0)
	_, err := collectStream(p.CompleteStream(context.Background(), nil))
	if err == nil || !strings.Contains(err.Error(), "could not reach Ollama") {
		t.Errorf("expected reachability error, got %v", err)
	}
}

// --- OpenAI-compatible ---

func TestOpenAI_CompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"START_FILE: a.css\n", "body{}", "\nEND_FILE"} {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chunk",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   "gpt-4o",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": tok}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", "gpt-4o", srv.URL+"/v1", 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := collectStream(p.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "START_FILE: a.css\nbody{}\nEND_FILE" {
		t.Errorf("unexpected result %q", result)
	}
}

func TestOpenAI_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p, _ := NewOpenAIProvider("bad", "gpt-4o", srv.URL+"/v1", 0)
	_, err := collectStream(p.CompleteStream(context.Background(), nil))
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

// --- Gemini ---

func TestSplitGeminiMessages(t *testing.T) {
	system, history, last := splitGeminiMessages([]Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "make a page"},
		{Role: RoleAssistant, Content: "START_FILE: index.html\n<p></p>\nEND_FILE"},
		{Role: RoleUser, Content: "make it blue"},
	})

	if system != "be helpful" {
		t.Errorf("unexpected system %q", system)
	}
	if last != "make it blue" {
		t.Errorf("unexpected last message %q", last)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Errorf("unexpected roles %q, %q", history[0].Role, history[1].Role)
	}
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(fmt.Errorf("googleapi: Error 400: API key not valid. Please pass a valid API key."))
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	err = classifyGeminiError(fmt.Errorf("quota exceeded"))
	if errors.Is(err, ErrUnauthorized) {
		t.Errorf("quota errors are not auth errors: %v", err)
	}
}

// geminiOptions points the Gemini client at a local test server.
func geminiOptions(t *testing.T, handler http.HandlerFunc) []option.ClientOption {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return []option.ClientOption{option.WithEndpoint(srv.URL), option.WithHTTPClient(srv.Client())}
}

func TestGemini_CompleteStream(t *testing.T) {
	var (
		gotPath string
		got     struct {
			Contents []struct {
				Role string `json:"role"`
			} `json:"contents"`
			SystemInstruction *json.RawMessage `json:"systemInstruction"`
		}
	)
	opts := geminiOptions(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)

		var chunks []map[string]any
		for _, tok := range []string{"START_FILE: index.html\n", "<h1>hi</h1>", "\nEND_FILE"} {
			chunks = append(chunks, map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{"role": "model", "parts": []map[string]string{{"text": tok}}},
				}},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chunks)
	})

	p, err := NewGeminiProvider("test-key", "gemini-test", 0.2, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := collectStream(p.CompleteStream(context.Background(), []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "make a page"},
		{Role: RoleAssistant, Content: "START_FILE: index.html\n<p></p>\nEND_FILE"},
		{Role: RoleUser, Content: "add a heading"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "START_FILE: index.html\n<h1>hi</h1>\nEND_FILE" {
		t.Errorf("unexpected result %q", result)
	}
	if !strings.HasSuffix(gotPath, "models/gemini-test:streamGenerateContent") {
		t.Errorf("unexpected path %s", gotPath)
	}
	if len(got.Contents) != 3 || got.Contents[0].Role != "user" || got.Contents[1].Role != "model" {
		t.Errorf("unexpected contents %+v", got.Contents)
	}
	if got.SystemInstruction == nil {
		t.Error("expected a system instruction in the request")
	}
}

func TestGemini_Unauthorized(t *testing.T) {
	opts := geminiOptions(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"API key not valid. Please pass a valid API key.","status":"UNAUTHENTICATED"}}`)
	})

	p, err := NewGeminiProvider("bad", "gemini-test", 0, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = collectStream(p.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
