package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DialOptions carries the client-side SSH settings shared by every host.
type DialOptions struct {
	KeyPath        string
	Passphrase     string
	KnownHostsPath string
	StrictHostKey  bool
	Timeout        time.Duration
}

// dialSSH establishes an SSH client connection. Password, key and agent
// authentication are offered in that order.
func dialSSH(target, user, password string, o DialOptions) (*ssh.Client, error) {
	var auths []ssh.AuthMethod

	if password != "" {
		auths = append(auths, ssh.Password(password))
		auths = append(auths, ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}))
	}

	if o.KeyPath != "" {
		if _, err := os.Stat(o.KeyPath); err == nil {
			signer, err := loadSigner(o.KeyPath, o.Passphrase)
			if err != nil {
				return nil, fmt.Errorf("load key: %w", err)
			}
			auths = append(auths, ssh.PublicKeys(signer))
		}
	}

	// Try SSH agent if available
	if a := os.Getenv("SSH_AUTH_SOCK"); a != "" {
		if conn, err := net.Dial("unix", a); err == nil {
			ag := agent.NewClient(conn)
			auths = append(auths, ssh.PublicKeysCallback(ag.Signers))
		}
	}

	var hostKeyCB ssh.HostKeyCallback
	if o.StrictHostKey {
		if _, err := os.Stat(o.KnownHostsPath); err != nil {
			return nil, fmt.Errorf("known_hosts file not found at %s and strict host key checking is enabled", o.KnownHostsPath)
		}
		cb, err := knownhosts.New(o.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
		hostKeyCB = cb
	} else {
		hostKeyCB = ssh.InsecureIgnoreHostKey()
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         o.Timeout,
	}

	d := net.Dialer{Timeout: o.Timeout}
	conn, err := d.Dial("tcp", target)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, target, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// loadSigner loads a private key with optional passphrase
func loadSigner(path, passphrase string) (ssh.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(b, []byte(passphrase))
	}
	s, err := ssh.ParsePrivateKey(b)
	if err == nil {
		return s, nil
	}
	var passphraseMissingError *ssh.PassphraseMissingError
	if errors.As(err, &passphraseMissingError) {
		return nil, fmt.Errorf("private key is encrypted; provide --passphrase or SSH_HELPER_PASSPHRASE")
	}
	return nil, err
}
