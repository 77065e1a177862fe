package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var errNoPassword = errors.New("no password has been read")

// resolvePassword returns the shared password from the flag or environment,
// then from the first word on stdin when fromStdin is set, and finally from
// an interactive prompt.
func resolvePassword(value string, fromStdin bool) (string, error) {
	if value != "" {
		return value, nil
	}
	if fromStdin {
		word, err := firstWord(stdinReader)
		if err != nil {
			return "", fmt.Errorf("%w: %v", errNoPassword, err)
		}
		if word != "" {
			return word, nil
		}
	}
	p, err := readPasswordFunc()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNoPassword, err)
	}
	return p, nil
}

func firstWord(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	if sc.Scan() {
		return sc.Text(), nil
	}
	return "", sc.Err()
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("standard input is not a terminal")
	}
	_, _ = fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
