package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/executor"
	"github.com/arin/webviber/internal/history"
	"github.com/arin/webviber/internal/preview"
	"github.com/arin/webviber/internal/server"
)

const defaultAddr = "127.0.0.1:8080"

var (
	serveAddr   string
	serveDevice string
	serveOpen   bool
	serveExact  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live preview of the current snapshot",
	Long: `Start the preview server for the current history snapshot.
The page offers desktop, tablet (768x1024) and mobile (375x667) frames
and a zip download of the project.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := history.Load()
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, ln, err := startPreview(serveAddr, serveDevice, serveExact)
		if err != nil {
			return err
		}
		srv.Publish(server.State{Files: stack.Files()})
		announce(ln, serveOpen, len(stack.Entries) == 0)

		return srv.Serve(ctx, ln)
	},
}

func init() {
	addPreviewFlags(serveCmd, &serveAddr, &serveDevice, &serveOpen, &serveExact)
}

func addPreviewFlags(c *cobra.Command, addr, device *string, open, exact *bool) {
	c.Flags().StringVar(addr, "addr", defaultAddr, "Address to listen on")
	c.Flags().StringVar(device, "device", string(preview.Desktop), "Default frame: desktop, tablet or mobile")
	c.Flags().BoolVar(open, "open", false, "Open the preview in the default browser")
	c.Flags().BoolVar(exact, "exact", false, "Only use a file named exactly index.html as the preview entry")
}

func startPreview(addr, deviceName string, exact bool) (*server.Server, net.Listener, error) {
	device, err := preview.ParseDevice(deviceName)
	if err != nil {
		return nil, nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := server.New(server.Options{
		Device: device,
		Match:  previewOptions(exact).Match,
		Logger: logger,
	})
	return srv, ln, nil
}

func announce(ln net.Listener, open, empty bool) {
	url := "http://" + ln.Addr().String()
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	cyan.Fprintf(os.Stderr, "\n  Preview at %s\n", url)
	if empty {
		dim.Fprintln(os.Stderr, "  No project yet. The page updates as soon as files arrive.")
	}
	dim.Fprintf(os.Stderr, "  Ctrl+C to stop.\n\n")

	if open {
		if err := executor.OpenURL(url); err != nil {
			color.New(color.FgYellow).Fprintf(os.Stderr, "  ⚠ %v\n", err)
		}
	}
}

// servePreview runs srv in the background until ctx is done.
func servePreview(ctx context.Context, srv *server.Server, ln net.Listener) <-chan error {
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	return done
}
