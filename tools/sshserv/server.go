// Package sshserv is a small in-process SSH server for tests. It accepts
// password logins and answers every exec request through a Handler.
package sshserv

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Handler runs one exec request and returns its exit status.
type Handler func(command string, stdin io.Reader, stdout, stderr io.Writer) int

// ShellHandler runs each command with /bin/sh -c inside dir.
func ShellHandler(dir string) Handler {
	return func(command string, stdin io.Reader, stdout, stderr io.Writer) int {
		cmd := exec.Command("/bin/sh", "-c", command)
		cmd.Dir = dir
		cmd.Stdin = stdin
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		err := cmd.Run()
		if err == nil {
			return 0
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return ee.ExitCode()
		}
		_, _ = io.WriteString(stderr, err.Error()+"\n")
		return 127
	}
}

// Config controls authentication and command handling. An empty Password
// accepts any password.
type Config struct {
	User     string
	Password string
	Handler  Handler
}

// Start listens on listenAddr (use port 0 for a free one) and serves until
// stop is called. addr is the address actually bound.
func Start(listenAddr string, cfg Config) (addr string, stop func(), err error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return "", nil, err
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		_ = ln.Close()
		return "", nil, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		_ = ln.Close()
		return "", nil, err
	}
	sc := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if cfg.User != "" && meta.User() != cfg.User {
				return nil, errors.New("unknown user")
			}
			if cfg.Password != "" && string(pw) != cfg.Password {
				return nil, errors.New("bad password")
			}
			return nil, nil
		},
	}
	sc.AddHostKey(signer)

	stopCh := make(chan struct{})
	done := make(chan struct{})
	var conns sync.WaitGroup

	go func() {
		defer close(done)
		for {
			_ = ln.(*net.TCPListener).SetDeadline(time.Now().Add(200 * time.Millisecond))
			conn, err := ln.Accept()
			select {
			case <-stopCh:
				if conn != nil {
					_ = conn.Close()
				}
				return
			default:
			}
			if err != nil {
				continue
			}
			conns.Add(1)
			go func() {
				defer conns.Done()
				handleConn(conn, sc, cfg.Handler)
			}()
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			close(stopCh)
			_ = ln.Close()
			<-done
		})
	}
	return ln.Addr().String(), stop, nil
}

func handleConn(raw net.Conn, cfg *ssh.ServerConfig, h Handler) {
	sc, chans, reqs, err := ssh.NewServerConn(raw, cfg)
	if err != nil {
		_ = raw.Close()
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)
	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "")
			continue
		}
		c, reqs, err := ch.Accept()
		if err != nil {
			continue
		}
		go handleSession(c, reqs, h)
	}
}

func handleSession(ch ssh.Channel, in <-chan *ssh.Request, h Handler) {
	defer ch.Close()
	for req := range in {
		switch req.Type {
		case "env":
			_ = req.Reply(true, nil)
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || h == nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			status := h(payload.Command, ch, ch, ch.Stderr())
			_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}
