// Package ui provides terminal styling for mrc CLI output.
package ui

import (
	"os"

	"github.com/muesli/termenv"
)

// IsAgentMode reports whether output should stay plain for machine
// consumption. Set MRC_AGENT_MODE=1 when driving mrc from scripts or
// coding agents.
func IsAgentMode() bool {
	v := os.Getenv("MRC_AGENT_MODE")
	return v == "1" || v == "true"
}

// ShouldUseColor decides whether to emit ANSI colors, honoring the
// conventional env vars in precedence order:
//
//	CLICOLOR_FORCE=1  force color even when not a TTY
//	NO_COLOR          disable color (https://no-color.org)
//	CLICOLOR=0        disable color
//
// Otherwise colors are used only on a color-capable TTY.
func ShouldUseColor() bool {
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return termenv.NewOutput(os.Stdout).Profile != termenv.Ascii
}
