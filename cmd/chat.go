package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/config"
	"github.com/arin/webviber/internal/executor"
	"github.com/arin/webviber/internal/export"
	"github.com/arin/webviber/internal/extract"
	"github.com/arin/webviber/internal/history"
	"github.com/arin/webviber/internal/preview"
	"github.com/arin/webviber/internal/reply"
	"github.com/arin/webviber/internal/server"
	"github.com/arin/webviber/internal/ui"
)

var (
	chatServe  string
	chatDevice string
	chatRaw    bool
	chatFresh  bool
)

const chatHelp = `
  /files            list the project files
  /show <path>      print a file
  /diff             what the last snapshot changed
  /undo, /redo      step through snapshots
  /preview          open the preview in a browser
  /export [name]    save the project as <name>.zip
  /write <dir>      write the project into a directory
  /new              start a new project
  /help             this list
  exit              leave
`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Build a site conversationally",
	Long: `Start an interactive session. Describe what you want, then keep
refining it; every reply that writes files becomes an undoable snapshot.

Examples:
  webviber chat
  webviber chat --serve 127.0.0.1:8080
  webviber chat --fresh

Type 'exit' or 'quit' to end the session, '/help' for commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession("chat")
		if err != nil {
			return err
		}
		s.raw = chatRaw
		s.fresh = chatFresh

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var (
			url      string
			serveErr <-chan error
		)
		if chatServe != "" {
			srv, ln, err := startPreview(chatServe, chatDevice, false)
			if err != nil {
				return err
			}
			s.srv = srv
			srv.Publish(server.State{Files: s.base()})
			serveErr = servePreview(ctx, srv, ln)
			url = "http://" + ln.Addr().String()
		}

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)
		green := color.New(color.FgGreen)

		fmt.Fprintln(os.Stderr)
		cyan.Fprintln(os.Stderr, "  webviber chat")
		dim.Fprintf(os.Stderr, "  %s · %s\n", s.cfg.Provider, s.cfg.Model)
		if files := s.base(); len(files) > 0 {
			dim.Fprintf(os.Stderr, "  Continuing the current project (%d files). /new starts over.\n", len(files))
		}
		if url != "" {
			dim.Fprintf(os.Stderr, "  Live preview at %s\n", url)
		}
		dim.Fprintf(os.Stderr, "  Type '/help' for commands, 'exit' to quit.\n\n")

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for {
			green.Fprint(os.Stderr, "  you → ")
			if !scanner.Scan() {
				break
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "exit" || input == "quit" || input == "bye" {
				dim.Fprintf(os.Stderr, "\n  Later! 👋\n\n")
				break
			}

			if strings.HasPrefix(input, "/") {
				if err := s.command(input, url); err != nil {
					color.New(color.FgYellow).Fprintf(os.Stderr, "  %v\n\n", err)
				}
				continue
			}

			res, err := s.send(ctx, input)
			printOutcome(os.Stderr, res, err)
			if err != nil && !errors.Is(err, reply.ErrNoFiles) {
				logger.Debug("reply failed", "err", err)
			}
		}

		cancel()
		if serveErr != nil {
			if err := <-serveErr; err != nil {
				return fmt.Errorf("preview server: %w", err)
			}
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatServe, "serve", "", "Run the live preview server on this address")
	chatCmd.Flags().StringVar(&chatDevice, "device", string(preview.Desktop), "Default preview frame: desktop, tablet or mobile")
	chatCmd.Flags().BoolVar(&chatRaw, "raw", false, "Echo the raw reply while it streams")
	chatCmd.Flags().BoolVar(&chatFresh, "fresh", false, "Start a new project instead of continuing the current one")
}

// command runs one slash command typed at the chat prompt.
func (s *session) command(input, url string) error {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	files := s.base()

	needFiles := func() error {
		if len(files) == 0 {
			return errors.New("no files yet, describe the site you want first")
		}
		return nil
	}

	switch name {
	case "/help":
		fmt.Fprint(os.Stderr, chatHelp+"\n")

	case "/files":
		if err := needFiles(); err != nil {
			return err
		}
		ui.FilesTable(os.Stderr, files, nil)
		fmt.Fprintln(os.Stderr)

	case "/show":
		if arg == "" {
			return errors.New("usage: /show <path>")
		}
		if err := needFiles(); err != nil {
			return err
		}
		if err := showFile(files, arg, false); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)

	case "/diff":
		cur, ok := s.stack.Current()
		if !ok || s.fresh {
			return errors.New("no snapshot to compare")
		}
		ui.RenderDiff(os.Stderr, snapshotDiff(s.stack, cur))

	case "/undo", "/redo":
		move, none := s.stack.Undo, "Nothing to undo."
		if name == "/redo" {
			move, none = s.stack.Redo, "Nothing to redo."
		}
		e, ok := move()
		if !ok {
			color.New(color.FgHiBlack).Fprintf(os.Stderr, "  %s\n\n", none)
			return nil
		}
		s.fresh = false
		s.restart()
		if err := history.Save(s.stack); err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}
		if s.srv != nil {
			s.srv.Publish(server.State{Files: s.stack.Files()})
		}
		printPosition(s.stack, e)
		fmt.Fprintln(os.Stderr)

	case "/preview":
		if err := needFiles(); err != nil {
			return err
		}
		return s.openPreview(files, url)

	case "/export":
		if err := needFiles(); err != nil {
			return err
		}
		name := arg
		if name == "" {
			name = export.DefaultProjectName
		}
		path, err := writeZip(".", name, files)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ Saved %s\n\n", path)

	case "/write":
		if arg == "" {
			return errors.New("usage: /write <dir>")
		}
		if err := needFiles(); err != nil {
			return err
		}
		if err := writeDir(executor.ExpandHome(arg), files); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)

	case "/new":
		s.fresh = true
		s.restart()
		if s.srv != nil {
			s.srv.Publish(server.State{})
		}
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "  Starting a new project. Earlier snapshots stay in `webviber history`.\n\n")

	default:
		return fmt.Errorf("unknown command %s, try /help", name)
	}
	return nil
}

// openPreview opens the live server if one is running, otherwise a one-off
// copy of the composed document.
func (s *session) openPreview(files []extract.File, url string) error {
	if url == "" {
		doc, ok := preview.Compose(files, preview.Options{})
		if !ok {
			return errors.New("the project has no index.html to preview")
		}
		path := filepath.Join(config.Dir(), "preview.html")
		if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			return fmt.Errorf("writing preview: %w", err)
		}
		url = "file://" + path
	}
	if err := executor.OpenURL(url); err != nil {
		return err
	}
	color.New(color.FgHiBlack).Fprintf(os.Stderr, "  Opened %s\n\n", url)
	return nil
}
