package main

import (
	"os"
	"strings"
)

// init runs before Bubble Tea or Lipgloss touch the terminal.
//
// Termenv's background-colour detection writes OSC/DSR queries to stdout on
// first use. Harmless in a real terminal, but they corrupt JSON and exports
// read by other programs. Setting CI=1 turns the probing off.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args[1:], os.Getenv("CDV_ROBOT") == "1") {
		return
	}
	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envRobot bool) bool {
	if envRobot {
		return true
	}
	for _, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = name[:i]
		}
		if strings.HasPrefix(name, "robot-") || strings.HasPrefix(name, "export-") {
			return true
		}
		switch name {
		case "version", "help", "dump-seed":
			return true
		}
	}
	return false
}
