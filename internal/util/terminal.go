package util

import (
	"golang.org/x/term"
)

// IsTerminal checks if the given file descriptor is a terminal.
// Used to decide between progress bars and plain log lines.
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}
