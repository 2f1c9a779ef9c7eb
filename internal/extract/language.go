package extract

import "strings"

// Plaintext is the language of any path without a recognised extension.
const Plaintext = "plaintext"

var languages = map[string]string{
	"js":   "javascript",
	"html": "html",
	"css":  "css",
	"php":  "php",
	"ts":   "typescript",
	"jsx":  "jsx",
	"tsx":  "tsx",
	"json": "json",
	"md":   "markdown",
}

// Language maps a path to a language name using the text after its last dot.
func Language(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return Plaintext
	}
	if lang, ok := languages[strings.ToLower(path[i+1:])]; ok {
		return lang
	}
	return Plaintext
}
