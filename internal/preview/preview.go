// Package preview builds a single self-contained HTML document from a set of
// generated files, for display in a browser.
package preview

import (
	"strings"

	"github.com/arin/webviber/internal/extract"
)

const entryName = "index.html"

// Match selects how the HTML entry point is located.
type Match int

const (
	// MatchSuffix picks the first file whose path ends with index.html.
	MatchSuffix Match = iota
	// MatchExact picks the file whose path is exactly index.html.
	MatchExact
)

// Options controls composition.
type Options struct {
	Match Match
}

// Compose returns the HTML entry point with the first stylesheet inlined
// before </head> and the first script inlined before </body>. It reports
// false when there is no HTML entry point.
//
// Substitution is literal and replaces only the first occurrence of each
// closing tag. Call it on raw generated files, never on its own output.
func Compose(files []extract.File, opts Options) (string, bool) {
	html, ok := entry(files, opts.Match)
	if !ok {
		return "", false
	}
	doc := html.Content

	if css, ok := firstByLanguage(files, "css"); ok {
		doc = strings.Replace(doc, "</head>", "<style>"+css.Content+"</style></head>", 1)
	}
	if js, ok := firstByLanguage(files, "javascript"); ok {
		doc = strings.Replace(doc, "</body>", "<script>"+js.Content+"</script></body>", 1)
	}
	return doc, true
}

func entry(files []extract.File, m Match) (extract.File, bool) {
	for _, f := range files {
		switch m {
		case MatchExact:
			if f.Path == entryName {
				return f, true
			}
		default:
			if strings.HasSuffix(f.Path, entryName) {
				return f, true
			}
		}
	}
	return extract.File{}, false
}

func firstByLanguage(files []extract.File, lang string) (extract.File, bool) {
	for _, f := range files {
		if f.Language == lang {
			return f, true
		}
	}
	return extract.File{}, false
}
