package commands

import (
	"os"

	"github.com/fatih/color"
)

var (
	green     = color.New(color.FgGreen).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	cyan      = color.New(color.FgCyan).SprintFunc()
	gray      = color.New(color.FgHiBlack).SprintFunc()
	bold      = color.New(color.Bold).SprintFunc()
	boldRed   = color.New(color.FgRed, color.Bold).SprintFunc()
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// configureColors honours --no-color and the NO_COLOR convention. fatih/color
// already disables itself when stdout is not a terminal.
func configureColors(disable bool) {
	if disable || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
