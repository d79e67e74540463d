package wallet

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

const minPasswordLen = 8

// Interactive reports whether a password can be read from the terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptPassword reads the wallet password from the terminal without echo.
func PromptPassword(prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)

	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		ZeroBytes(pw)
		return nil, errors.Wrap(err, "password input failed")
	}
	if err := validatePassword(pw); err != nil {
		ZeroBytes(pw)
		return nil, err
	}
	return pw, nil
}

func validatePassword(pw []byte) error {
	if len(pw) < minPasswordLen {
		return errors.Newf("password must be at least %d characters long", minPasswordLen)
	}
	for _, b := range pw {
		if b < 0x21 || b > 0x7e {
			return errors.New("password contains invalid characters (use printable ASCII without spaces)")
		}
	}
	return nil
}

func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
