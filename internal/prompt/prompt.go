// Package prompt reads answers and secrets from the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

const (
	// PasswordEnv supplies the wallet password when no terminal is attached.
	PasswordEnv = "QCC_PASSWORD"

	minPasswordLen = 8
)

// Password reads the wallet password from PasswordEnv or, failing that,
// from the terminal without echo.
func Password(label string) ([]byte, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		b := []byte(pw)
		if err := ValidatePassword(b); err != nil {
			return nil, errors.Wrapf(err, "%s", PasswordEnv)
		}
		return b, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.Newf("no terminal for the password prompt; set %s", PasswordEnv)
	}

	_, _ = fmt.Fprint(os.Stderr, label)
	pw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		ZeroBytes(pw)
		return nil, errors.Wrap(err, "password input failed")
	}
	if err := ValidatePassword(pw); err != nil {
		ZeroBytes(pw)
		return nil, err
	}
	return pw, nil
}

func ValidatePassword(pw []byte) error {
	if len(pw) < minPasswordLen {
		return errors.Newf("password must be at least %d characters long", minPasswordLen)
	}
	for _, b := range pw {
		if !IsAllowedPasswordChar(b) {
			return errors.New("password contains invalid characters (use letters, numbers, and special characters only)")
		}
	}
	return nil
}

// IsAllowedPasswordChar accepts printable ASCII except space.
func IsAllowedPasswordChar(b byte) bool {
	return b > ' ' && b <= '~'
}

func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// LineWithDefault prints label and returns the trimmed answer, or def when
// the answer is empty or unreadable. Pass a *bufio.Reader to ask several
// questions from one stream.
func LineWithDefault(in io.Reader, out io.Writer, label, def string) string {
	if def != "" {
		_, _ = fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		_, _ = fmt.Fprintf(out, "%s: ", label)
	}

	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return def
	}
	if line = strings.TrimSpace(line); line == "" {
		return def
	}
	return line
}
