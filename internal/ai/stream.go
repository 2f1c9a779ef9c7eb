package ai

import (
	"context"
	"strings"
)

// StreamDelta represents a single chunk from a streaming AI response.
// A reply arrives as an ordered sequence of deltas on a channel that is
// closed once the reply is complete or has failed.
type StreamDelta struct {
	// Token is the text fragment. Empty string is valid (heartbeat).
	Token string
	// Done is true when the stream is complete.
	Done bool
	// Err is non-nil if the stream encountered an error.
	Err error
}

// StreamingProvider extends Provider with token-by-token streaming.
// Providers that don't support streaming can omit this interface;
// the Client will fall back to Complete() automatically.
type StreamingProvider interface {
	Provider
	// CompleteStream sends messages and returns a channel that emits tokens
	// as they arrive. The channel is closed when the response is complete.
	CompleteStream(ctx context.Context, messages []Message) <-chan StreamDelta
}

// collectStream reads all tokens from a stream channel and returns the
// concatenated result. Useful for testing and fallback paths.
func collectStream(ch <-chan StreamDelta) (string, error) {
	var result strings.Builder
	for delta := range ch {
		if delta.Err != nil {
			return result.String(), delta.Err
		}
		result.WriteString(delta.Token)
	}
	return result.String(), nil
}

// send delivers d unless ctx is cancelled first. It reports whether the
// delta was delivered.
func send(ctx context.Context, ch chan<- StreamDelta, d StreamDelta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
