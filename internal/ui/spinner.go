// Package ui provides terminal UI helpers.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner wraps a terminal spinner for loading states.
type Spinner struct {
	s   *spinner.Spinner
	out io.Writer
}

// NewSpinner creates a spinner on stderr with the given message.
func NewSpinner(msg string) *Spinner {
	return newSpinner(os.Stderr, msg)
}

func newSpinner(w io.Writer, msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	s.Color("cyan")
	return &Spinner{s: s, out: w}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop halts the spinner and clears the line.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// SetMessage replaces the text shown next to the spinner.
func (sp *Spinner) SetMessage(msg string) {
	sp.s.Lock()
	sp.s.Suffix = "  " + msg
	sp.s.Unlock()
}

// Success stops the spinner and prints a green check.
func (sp *Spinner) Success(msg string) {
	sp.s.Stop()
	green := color.New(color.FgGreen)
	green.Fprintf(sp.out, "  ✓ %s\n", msg)
}

// Fail stops the spinner and prints a red cross.
func (sp *Spinner) Fail(msg string) {
	sp.s.Stop()
	red := color.New(color.FgRed)
	red.Fprintf(sp.out, "  ✗ %s\n", msg)
}
