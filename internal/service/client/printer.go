package client

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/oshokin/home-security/internal/domain/security"
)

// formatConfig renders the config with a color per value.
func formatConfig(cfg security.Config) string {
	status := color.New(color.FgGreen).Sprint(cfg.Status)
	if cfg.IsBreached() {
		status = color.New(color.FgRed, color.Bold).Sprint(cfg.Status)
	}

	state := color.New(color.FgCyan).Sprint(cfg.State)
	if cfg.IsArmed() {
		state = color.New(color.FgYellow).Sprint(cfg.State)
	}

	return fmt.Sprintf("status: %s  state: %s", status, state)
}

func printConfig(out io.Writer, prefix string, cfg security.Config) {
	_, _ = fmt.Fprintf(out, "%s%s\n", prefix, formatConfig(cfg))
}

// okPrefix labels a successful operation, e.g. "OK armed: ".
func okPrefix(verb string) string {
	return color.New(color.FgGreen).Sprint("OK") + " " + verb + ": "
}

func printDone(out io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("OK"), fmt.Sprintf(format, args...))
}
