package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ssh-helper/internal/tools"
)

// EnsureKeyPair makes sure privPath and privPath.pub exist, generating a
// passphrase-less RSA pair with ssh-keygen when the private key is missing
// and deriving the public half when only it is missing.
func EnsureKeyPair(r tools.CommandRunner, privPath string) (generated bool, err error) {
	pubPath := privPath + ".pub"
	_, privErr := os.Stat(privPath)
	_, pubErr := os.Stat(pubPath)
	if privErr == nil && pubErr == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(privPath), 0o700); err != nil {
		return false, err
	}

	if privErr == nil {
		out, stderr, code, err := r.Run("ssh-keygen", "-y", "-f", privPath)
		if err != nil || code != 0 {
			return false, fmt.Errorf("ssh-keygen -y: exit %d: %s", code, strings.TrimSpace(string(stderr)))
		}
		return true, os.WriteFile(pubPath, out, 0o644)
	}

	_, stderr, code, err := r.Run("ssh-keygen", "-q", "-t", "rsa", "-N", "", "-f", privPath)
	if err != nil || code != 0 {
		return false, fmt.Errorf("ssh-keygen: exit %d: %s", code, strings.TrimSpace(string(stderr)))
	}
	return true, nil
}

// ReadPublicKey returns the first line of the public key file.
func ReadPublicKey(pubPath string) (string, error) {
	b, err := os.ReadFile(pubPath)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(b), "\n")
	return strings.TrimSpace(line), nil
}
