package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/kalambet/folio/internal/profile"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// noColor disables ANSI colors. It defaults to on when stderr is not a
// terminal or NO_COLOR is set.
var noColor = os.Getenv("NO_COLOR") != "" ||
	!(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// emit writes one marked line to stderr.
func emit(color, mark, format string, args []any) {
	fmt.Fprintln(os.Stderr, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { emit(colorGreen, "✓", format, args) }
func printError(format string, args ...any)   { emit(colorRed, "✗", format, args) }
func printWarning(format string, args ...any) { emit(colorYellow, "⚠", format, args) }
func printStep(format string, args ...any)    { emit(colorCyan, "→", format, args) }

// printStatus writes an indented "label: value" line.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// printNotification renders a background save or load outcome as a
// one-line toast.
func printNotification(n profile.Notification) {
	switch n.Kind {
	case profile.SaveSucceeded:
		printSuccess("Saved for %s", n.OwnerID)
	case profile.SaveFailed:
		printError("Saving failed: %v (the edit is kept on this device)", n.Err)
	case profile.RemoteLoaded:
		printStep("Loaded the published document")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
