package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"

	"github.com/arin/webviber/internal/ai"
	"github.com/arin/webviber/internal/config"
	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/history"
	"github.com/arin/webviber/internal/reply"
	"github.com/arin/webviber/internal/server"
	"github.com/arin/webviber/internal/stats"
	"github.com/arin/webviber/internal/ui"
)

// continuationPrompt opens a conversation that builds on an existing project.
const continuationPrompt = "Here is the project we are working on. Keep building on it."

// session is one conversation with the model on top of the snapshot history.
type session struct {
	cfg        *config.Config
	client     *ai.Client
	stack      *history.Stack
	convo      []ai.ChatMessage
	srv        *server.Server // optional live preview
	out        io.Writer
	raw        bool // echo the raw reply while it streams
	fresh      bool // ignore the current snapshot for the next reply
	subcommand string
}

func newSession(subcommand string) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	client, err := ai.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	stack, err := history.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	logger.Debug("session", "provider", cfg.Provider, "model", cfg.Model, "snapshots", len(stack.Entries))

	return &session{
		cfg:        cfg,
		client:     client,
		stack:      stack,
		out:        os.Stderr,
		subcommand: subcommand,
	}, nil
}

// base is the file set the next reply builds on.
func (s *session) base() []extract.File {
	if s.fresh {
		return nil
	}
	return s.stack.Files()
}

// messages is the conversation sent for prompt. When the turns alone do not
// carry the project (a new conversation, or one too long to send whole), the
// current files are replayed first as a pinned exchange.
func (s *session) messages(prompt string) []ai.ChatMessage {
	var msgs []ai.ChatMessage
	if len(s.convo) == 0 || len(s.convo)+1 > ai.MaxHistory {
		if files := s.base(); len(files) > 0 {
			msgs = append(msgs,
				ai.ChatMessage{Role: ai.RoleUser, Content: continuationPrompt, Pinned: true},
				ai.ChatMessage{Role: ai.RoleAssistant, Content: renderBlocks(files), Pinned: true},
			)
		}
	}
	msgs = append(msgs, s.convo...)
	return append(msgs, ai.ChatMessage{Role: ai.RoleUser, Content: prompt})
}

// renderBlocks writes files back out in the block format the model uses.
func renderBlocks(files []extract.File) string {
	var b strings.Builder
	for i, f := range files {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "START_FILE: %s\n%s\nEND_FILE\n", f.Path, f.Content)
	}
	return b.String()
}

// send streams one reply for prompt. Ctrl+C cancels the reply, not the process.
func (s *session) send(parent context.Context, prompt string) (*reply.Result, error) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	base := s.base()
	msgs := s.messages(prompt)
	stream := s.client.GenerateStream(ctx, msgs)

	progress := ui.NewProgress(s.out)
	if s.raw {
		stream = ui.Echo(ctx, s.out, stream, "  ")
	} else {
		progress.Start()
	}
	reporter := ui.NewReporter(s.out, progress)

	if s.srv != nil {
		s.srv.Publish(server.State{Files: base, Generating: true})
	}
	res, err := reply.Run(ctx, stream, base, func(u reply.Update) {
		reporter.Update(u)
		if s.srv != nil {
			s.srv.Publish(server.State{Files: u.Files, Partial: u.Partial, Generating: true})
		}
	})
	progress.Stop()

	s.record(prompt, res, err)

	if err != nil {
		if s.srv != nil {
			s.srv.Publish(server.State{Files: s.stack.Files()})
		}
		if errors.Is(err, context.Canceled) && parent.Err() == nil {
			return nil, errors.New("reply cancelled")
		}
		if errors.Is(err, reply.ErrNoFiles) && res != nil {
			s.remember(prompt, res.Transcript)
		}
		return res, err
	}

	s.remember(prompt, res.Transcript)
	if res.Written > 0 {
		s.stack.Push(prompt, res.Files)
		s.fresh = false
		if err := history.Save(s.stack); err != nil {
			logger.Warn("save history", "err", err)
		}
	}
	if s.srv != nil {
		s.srv.Publish(server.State{Files: s.stack.Files()})
	}
	return res, nil
}

func (s *session) remember(prompt, transcript string) {
	s.convo = append(s.convo,
		ai.ChatMessage{Role: ai.RoleUser, Content: prompt},
		ai.ChatMessage{Role: ai.RoleAssistant, Content: transcript},
	)
}

// restart forgets the conversation so the next reply replays the current
// snapshot. Used after undo and redo.
func (s *session) restart() {
	s.convo = nil
}

func (s *session) record(prompt string, res *reply.Result, err error) {
	r := stats.Record{
		Prompt:     prompt,
		Provider:   s.cfg.Provider,
		Model:      s.cfg.Model,
		Success:    err == nil,
		Subcommand: s.subcommand,
	}
	if res != nil {
		r.LatencyMs = res.Duration.Milliseconds()
		r.FirstTokenMs = res.FirstToken.Milliseconds()
		r.Chunks = res.Chunks
		r.Bytes = len(res.Transcript)
		fresh, _ := extract.Extract(res.Transcript, nil)
		r.Files = len(fresh)
		for _, f := range fresh {
			r.Paths = append(r.Paths, f.Path)
		}
	}
	if err != nil {
		r.Error = err.Error()
	}
	if err := stats.Save(r); err != nil {
		logger.Warn("save stats", "err", err)
	}
}

// printOutcome shows the model's remarks and the closing summary line.
func printOutcome(w io.Writer, res *reply.Result, err error) {
	cyan := color.New(color.FgCyan)
	if res != nil {
		if prose := extract.Prose(res.Transcript); prose != "" {
			cyan.Fprint(w, "  webviber → ")
			fmt.Fprintf(w, "%s\n", indent(prose, "    "))
		}
	}
	if err != nil {
		color.New(color.FgYellow).Fprintf(w, "  %s\n\n", err)
		return
	}
	ui.NewReporter(w, nil).Summary(res)
	fmt.Fprintln(w)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
