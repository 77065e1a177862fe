package remote

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// dialFunc is replaced in tests.
type dialFunc func(target, user, password string, o DialOptions) (*ssh.Client, error)

// SSHChannel implements Channel on top of golang.org/x/crypto/ssh. Each
// command runs on its own session of a single client connection.
type SSHChannel struct {
	Host string
	Port int
	// Stdout receives the output of Run and RunInput. Defaults to os.Stdout.
	Stdout io.Writer

	opts DialOptions
	log  zerolog.Logger
	dial dialFunc

	user     string
	password string
	client   *ssh.Client
}

// NewSSH returns an unconnected channel to host:port.
func NewSSH(host string, port int, opts DialOptions, log zerolog.Logger) *SSHChannel {
	if port == 0 {
		port = 22
	}
	return &SSHChannel{
		Host:   host,
		Port:   port,
		Stdout: os.Stdout,
		opts:   opts,
		log:    log,
		dial:   dialSSH,
	}
}

func (c *SSHChannel) target() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Connect dials and authenticates as user.
func (c *SSHChannel) Connect(user, password string) error {
	if c.client != nil {
		return nil
	}
	client, err := c.dial(c.target(), user, password, c.opts)
	if err != nil {
		return fmt.Errorf("%w: connect %s@%s: %v", ErrTransport, user, c.target(), err)
	}
	c.client = client
	c.user = user
	c.password = password
	c.log.Debug().Str("target", c.target()).Msg("connected")
	return nil
}

func (c *SSHChannel) Run(command string) (Result, error) {
	return c.exec(command, nil, false, c.Stdout)
}

func (c *SSHChannel) RunInput(command string, stdin []byte) (Result, error) {
	return c.exec(command, stdin, false, c.Stdout)
}

func (c *SSHChannel) RunCapture(command string) (Result, error) {
	var out bytes.Buffer
	r, err := c.exec(command, nil, false, &out)
	r.Output = out.Bytes()
	return r, err
}

func (c *SSHChannel) RunPrivileged(command string) (Result, error) {
	if r, ok, err := c.probeSudo(); !ok || err != nil {
		return r, err
	}
	return c.exec(command, nil, true, c.Stdout)
}

func (c *SSHChannel) RunPrivilegedCapture(command string) (Result, error) {
	if r, ok, err := c.probeSudo(); !ok || err != nil {
		return r, err
	}
	var out bytes.Buffer
	r, err := c.exec(command, nil, true, &out)
	r.Output = out.Bytes()
	return r, err
}

// probeSudo runs a no-op through sudo. ok is false when the user cannot
// elevate, in which case r describes the refusal.
func (c *SSHChannel) probeSudo() (r Result, ok bool, err error) {
	var out bytes.Buffer
	if _, err := c.exec("echo Ok", nil, true, &out); err != nil {
		return Result{}, false, err
	}
	if strings.TrimSpace(out.String()) == "Ok" {
		return Result{}, true, nil
	}
	return Result{
		ExitCode: NotPrivileged,
		Log:      fmt.Sprintf("Error: %s@%s is not in sudoers.", c.user, c.Host),
	}, false, nil
}

func (c *SSHChannel) PushFile(localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.push(f, remotePath)
}

func (c *SSHChannel) PushText(content, remotePath string) error {
	return c.push(strings.NewReader(content), remotePath)
}

// push streams r into remotePath with mode 0640.
func (c *SSHChannel) push(r io.Reader, remotePath string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	dir := QuotePath(path.Dir(remotePath))
	dst := QuotePath(remotePath)
	cmd := fmt.Sprintf("mkdir -p %s && cat > %s && chmod 640 %s", dir, dst, dst)

	sess, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("%w: new session: %v", ErrTransport, err)
	}
	defer sess.Close()
	sess.Stdin = r
	var out bytes.Buffer
	w := &lockedWriter{w: &out}
	sess.Stdout = w
	sess.Stderr = w
	c.log.Debug().Str("path", remotePath).Msg("push")
	if err := sess.Run(cmd); err != nil {
		var ee *ssh.ExitError
		if errors.As(err, &ee) {
			return fmt.Errorf("%w: push %s: exit %d: %s", ErrTransport, remotePath, ee.ExitStatus(), strings.TrimSpace(out.String()))
		}
		return fmt.Errorf("%w: push %s: %v", ErrTransport, remotePath, err)
	}
	return nil
}

func (c *SSHChannel) exec(command string, stdin []byte, sudo bool, out io.Writer) (Result, error) {
	if c.client == nil {
		return Result{}, ErrNotConnected
	}
	if sudo {
		command = "sudo -Sp '' " + command
		stdin = append([]byte(c.password+"\n"), stdin...)
	}
	c.log.Debug().Bool("sudo", sudo).Str("command", command).Msg("exec")

	sess, err := c.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("%w: new session: %v", ErrTransport, err)
	}
	defer sess.Close()

	scan := &LogScanner{}
	w := &lockedWriter{w: io.MultiWriter(scan, out)}
	sess.Stdout = w
	sess.Stderr = w
	if len(stdin) > 0 {
		sess.Stdin = bytes.NewReader(stdin)
	}

	err = sess.Run(command)
	r := Result{Log: scan.Log()}
	if err == nil {
		return r, nil
	}
	var ee *ssh.ExitError
	if errors.As(err, &ee) {
		r.ExitCode = ee.ExitStatus()
		return r, nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		r.ExitCode = -1
		return r, nil
	}
	return r, fmt.Errorf("%w: exec: %v", ErrTransport, err)
}

func (c *SSHChannel) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// lockedWriter serializes the stdout and stderr copy goroutines of a session.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
