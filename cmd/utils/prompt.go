package utils

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

// IsInteractive reports whether stdin is a terminal a question can be asked on.
func IsInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm asks a yes or no question on the terminal. Anything but an explicit
// yes, including Ctrl-C and end of input, is taken as no.
func Confirm(question string) (bool, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	answer, err := line.Prompt(question + " [y/N] ")
	switch {
	case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
		return false, nil
	case err != nil:
		return false, err
	}
	return parseAnswer(answer), nil
}

func parseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
