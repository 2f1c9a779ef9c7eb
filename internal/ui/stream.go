package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/arin/webviber/internal/ai"
)

// Echo passes every delta from ch through unchanged and writes each token
// to w as it goes by, prefixing the first one. The returned channel closes
// when ch does or ctx is cancelled. It is used to show the raw reply while
// it is parsed.
func Echo(ctx context.Context, w io.Writer, ch <-chan ai.StreamDelta, prefix string) <-chan ai.StreamDelta {
	out := make(chan ai.StreamDelta)
	go func() {
		defer close(out)
		first := true
		wrote := false
		for delta := range ch {
			if delta.Token != "" {
				if first {
					fmt.Fprint(w, prefix)
					first = false
				}
				fmt.Fprint(w, delta.Token)
				wrote = true
			}
			if (delta.Done || delta.Err != nil) && wrote {
				fmt.Fprintln(w)
				wrote = false
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
