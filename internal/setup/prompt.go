package setup

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

func promptYesNo(msg string) (bool, error) {
	fmt.Print(msg)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return false, err
	}
	s := strings.TrimSpace(strings.ToLower(line))
	return s == "y" || s == "yes", nil
}

// promptSecret reads one line from the terminal without echo.
func promptSecret(msg string) (string, error) {
	_, _ = fmt.Fprint(os.Stderr, msg)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("secret input failed: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
