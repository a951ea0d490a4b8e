package ui

import (
	"github.com/fatih/color"
)

var (
	noColorFlag bool
	verboseFlag bool
)

// InitUI initializes the UI with color and verbose settings.
func InitUI(noColor, verbose bool) {
	noColorFlag = noColor
	verboseFlag = verbose

	if noColor {
		color.NoColor = true
	}
}

// Close cleans up any UI resources.
func Close() {
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	return stdoutIsTerminal()
}
