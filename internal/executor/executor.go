// Package executor launches helper programs on the user's machine.
package executor

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// OpenURL opens url in the default browser without waiting for it to exit.
// $BROWSER, when set, takes precedence.
func OpenURL(url string) error {
	name, args := openCommand(runtime.GOOS, os.Getenv("BROWSER"), url)
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not open browser (%s): %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand(goos, browser, url string) (string, []string) {
	if parts := strings.Fields(browser); len(parts) > 0 {
		return parts[0], append(parts[1:], url)
	}
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// BrowserAvailable reports whether OpenURL has a program to launch.
func BrowserAvailable() bool {
	name, _ := openCommand(runtime.GOOS, os.Getenv("BROWSER"), "")
	_, err := exec.LookPath(name)
	return err == nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + path[1:]
		}
	}
	return path
}
