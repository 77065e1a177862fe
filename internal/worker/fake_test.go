package worker

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"strings"
	"sync"

	"ssh-helper/internal/remote"
)

// fakeNet connects fake channels so that a relay on one host can read a
// file held by another.
type fakeNet struct {
	mu    sync.Mutex
	hosts map[string]*fakeChannel
}

func newFakeNet() *fakeNet { return &fakeNet{hosts: map[string]*fakeChannel{}} }

func (n *fakeNet) channel(host, user string) *fakeChannel {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := &fakeChannel{net: n, host: host, home: "/home/" + user, files: map[string]string{}, sudo: true}
	n.hosts[host] = c
	return c
}

func (n *fakeNet) lookup(host string) *fakeChannel {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hosts[host]
}

// fakeChannel records every command and emulates the handful the worker
// issues against a map of path to md5.
type fakeChannel struct {
	net  *fakeNet
	host string
	home string
	sudo bool
	// connectErr fails Connect when set.
	connectErr error
	// respond overrides the result of Run for matching commands.
	respond func(cmd string) (remote.Result, bool)

	mu        sync.Mutex
	files     map[string]string
	calls     []string
	pushed    []string
	connected bool
	closed    bool
}

func (c *fakeChannel) Connect(user, password string) error {
	if c.connectErr != nil {
		return c.connectErr
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Run(cmd string) (remote.Result, error) { return c.exec(cmd, nil), nil }

func (c *fakeChannel) RunInput(cmd string, stdin []byte) (remote.Result, error) {
	return c.exec(cmd, stdin), nil
}

func (c *fakeChannel) RunCapture(cmd string) (remote.Result, error) { return c.exec(cmd, nil), nil }

func (c *fakeChannel) RunPrivileged(cmd string) (remote.Result, error) {
	if !c.sudo {
		c.note("sudo-denied " + cmd)
		return remote.Result{ExitCode: remote.NotPrivileged, Log: "Error: not in sudoers."}, nil
	}
	return c.exec(cmd, nil), nil
}

func (c *fakeChannel) RunPrivilegedCapture(cmd string) (remote.Result, error) {
	return c.RunPrivileged(cmd)
}

func (c *fakeChannel) PushFile(localPath, remotePath string) error {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	sum := md5.Sum(b)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, localPath)
	c.files[remotePath] = hex.EncodeToString(sum[:])
	c.calls = append(c.calls, "push "+remotePath)
	return nil
}

func (c *fakeChannel) PushText(content, remotePath string) error {
	sum := md5.Sum([]byte(content))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[remotePath] = hex.EncodeToString(sum[:])
	c.calls = append(c.calls, "push "+remotePath)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) note(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *fakeChannel) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeChannel) file(p string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.files[p]
	return v, ok
}

func (c *fakeChannel) setFile(p, sum string) {
	c.mu.Lock()
	c.files[p] = sum
	c.mu.Unlock()
}

func (c *fakeChannel) exec(cmd string, stdin []byte) remote.Result {
	c.note(cmd)
	if c.respond != nil {
		if r, ok := c.respond(cmd); ok {
			return r
		}
	}
	f := strings.Fields(cmd)
	switch {
	case strings.HasPrefix(cmd, "printf '%s' \"$HOME\""):
		return remote.Result{Output: []byte(c.home)}
	case len(f) >= 3 && f[0] == "md5sum":
		sum, _ := c.file(f[2])
		return remote.Result{Output: []byte(sum + "\n")}
	case len(f) == 3 && f[0] == "cp":
		sum, ok := c.file(f[1])
		if !ok {
			return remote.Result{ExitCode: 1}
		}
		c.setFile(f[2], sum)
	case len(f) >= 4 && f[0] == "python3" && f[2] == "scp":
		src, dst := f[len(f)-2], f[len(f)-1]
		at, colon := strings.Index(src, "@"), strings.Index(src, ":")
		peer := c.net.lookup(src[at+1 : colon])
		if peer == nil || strings.TrimSpace(string(stdin)) == "" {
			return remote.Result{ExitCode: 1}
		}
		sum, ok := peer.file(src[colon+1:])
		if !ok {
			return remote.Result{ExitCode: 1}
		}
		c.setFile(dst, sum)
	case len(f) >= 2 && f[0] == "ls":
		return remote.Result{ExitCode: 0}
	}
	return remote.Result{}
}
