package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/config"
	"github.com/arin/webviber/internal/executor"
	"github.com/arin/webviber/internal/history"
)

const defaultOllamaURL = "http://localhost:11434"

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system health and configuration",
	Long: `Run a health check on your webviber setup.
Verifies the configuration, the provider credentials or Ollama
connectivity, the snapshot history and the browser launcher.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 webviber doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			if err != nil {
				if strings.HasPrefix(err.Error(), "warn:") {
					yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), "warn:"))
					warn++
				} else {
					red.Fprintf(os.Stderr, "  ✗ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", err.Error())
					fail++
				}
			} else {
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, " (%s)", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		check("webviber binary installed", func() (string, error) {
			path, err := os.Executable()
			if err != nil {
				return "", fmt.Errorf("could not find webviber binary")
			}
			return path, nil
		})

		check("Config directory", func() (string, error) {
			dir := config.Dir()
			info, err := os.Stat(dir)
			if err != nil {
				return "", fmt.Errorf("warn:~/.webviber not found, it will be created on first use")
			}
			if !info.IsDir() {
				return "", fmt.Errorf("~/.webviber exists but is not a directory")
			}
			return dir, nil
		})

		cfg, cfgErr := config.Load()
		check("Configuration valid", func() (string, error) {
			if cfgErr != nil {
				return "", cfgErr
			}
			return cfg.Provider + " · " + cfg.Model, nil
		})

		if cfgErr == nil {
			if cfg.Provider == config.ProviderOllama {
				check("Ollama server reachable", func() (string, error) {
					return pingOllama(cfg.BaseURL)
				})
			} else {
				check(fmt.Sprintf("API key set (%s)", cfg.Provider), func() (string, error) {
					if cfg.APIKey == "" {
						return "", fmt.Errorf("run: webviber config set-key <key>, or set API_KEY")
					}
					return cfg.MaskedKey(), nil
				})
			}
		}

		check("Snapshot history", func() (string, error) {
			stack, err := history.Load()
			if err != nil {
				return "", err
			}
			if len(stack.Entries) == 0 {
				return "empty", nil
			}
			return fmt.Sprintf("%d snapshots, at %d", len(stack.Entries), stack.Index+1), nil
		})

		check("Browser launcher", func() (string, error) {
			if !executor.BrowserAvailable() {
				return "", errors.New("warn:no browser opener found, --open and /preview will not work (set $BROWSER)")
			}
			return "", nil
		})

		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), nil
		})

		// Summary
		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Everything works, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}

func pingOllama(baseURL string) (string, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(baseURL + "/api/tags")
	if err != nil {
		return "", fmt.Errorf("could not connect to %s, run: ollama serve", baseURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return strings.TrimPrefix(strings.TrimPrefix(baseURL, "http://"), "https://"), nil
}
