package console

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Test seams for terminal access.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// readLine prints prompt and reads one line, trimmed. A final line without
// a newline is still returned.
func (a *App) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(a.out, prompt)
	}
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads a value without echo when stdin is a terminal.
func (a *App) readSecret(prompt string) (string, error) {
	if !isTerminal(a.inFd) {
		return a.readLine(prompt)
	}

	fmt.Fprint(a.out, prompt)
	b, err := readPassword(a.inFd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
