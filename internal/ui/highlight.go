package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fatih/color"

	"github.com/arin/webviber/internal/extract"
)

const highlightStyle = "monokai"

// Highlight writes f's content with terminal syntax colors. Plain text is
// written when color is disabled or no lexer fits.
func Highlight(w io.Writer, f extract.File) error {
	content := f.Content
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	lexer := lexerFor(f)
	if color.NoColor || lexer == nil {
		_, err := io.WriteString(w, content)
		return err
	}

	it, err := chroma.Coalesce(lexer).Tokenise(nil, content)
	if err != nil {
		return fmt.Errorf("tokenise %s: %w", f.Path, err)
	}
	return formatters.Get("terminal256").Format(w, styles.Get(highlightStyle), it)
}

func lexerFor(f extract.File) chroma.Lexer {
	if f.Language == extract.Plaintext {
		return nil
	}
	if l := lexers.Get(f.Language); l != nil {
		return l
	}
	return lexers.Match(f.Path)
}
