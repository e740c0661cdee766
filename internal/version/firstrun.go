// Package version carries the build version and the first-run notice.
package version

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dhabedank/fin-advisor/internal/tui"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

const (
	// ConfigFileName is the YAML config looked up in the working directory and home.
	ConfigFileName = ".fin-advisor.yaml"

	stateDir   = ".fin-advisor"
	markerName = ".initialized"
)

// IsFirstRun reports whether neither a config file nor the first-run marker
// exists under home.
func IsFirstRun(home string) bool {
	if home == "" {
		return false
	}
	if _, err := os.Stat(filepath.Join(home, ConfigFileName)); err == nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(home, stateDir, markerName)); err == nil {
		return false
	}
	return true
}

// MarkInitialized creates the first-run marker under home.
func MarkInitialized(home string) error {
	dir := filepath.Join(home, stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, markerName), nil, 0o644)
}

// PrintFirstRunNotice prints a welcome message for first-time users.
func PrintFirstRunNotice(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Welcome to fin-advisor %s!\n", tui.TitleStyle.Render("*"), Version)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Quick start:")
	fmt.Fprintf(w, "    1. Run %s to pick the chat model\n", tui.ModelStyle.Render("fin-advisor setup"))
	fmt.Fprintf(w, "    2. Preview a user's context: %s\n", tui.ModelStyle.Render("fin-advisor prompt <user-id> --data-dir data"))
	fmt.Fprintf(w, "    3. Start the API: %s\n", tui.ModelStyle.Render("fin-advisor serve --data-dir data"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", tui.HelpStyle.Render("Run 'fin-advisor --help' for all options"))
	fmt.Fprintln(w)
}
