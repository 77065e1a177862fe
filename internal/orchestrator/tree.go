package orchestrator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ssh-helper/internal/configtree"
	"ssh-helper/internal/worker"
)

// ErrConfigShape reports a scripts file whose root or hosts section is not
// laid out as expected.
var ErrConfigShape = errors.New("config shape")

// AllowedTags is the tag vocabulary of a scripts file.
var AllowedTags = configtree.NewTagSet(
	"hosts", "scripts", "user", "host", "password", "port", "script", "name",
	"command", "sudo", "stop_on_error", "args", "orig", "dest", "md5",
	"threads", "scripts_lock", "type", "upload", "download", "monitor",
)

// Plan is a scripts file split into its two root sections.
type Plan struct {
	Hosts   []worker.Host
	Scripts *configtree.List
}

// Split separates the hosts and scripts sections of tree. Hosts without a
// password get defaultPassword.
func Split(tree *configtree.List, defaultPassword string) (*Plan, error) {
	var hosts, scripts *configtree.List
	for _, e := range tree.Entries {
		switch e.Tag {
		case "scripts", "hosts":
			l, err := configtree.AsList(e.Item)
			if err != nil {
				return nil, fmt.Errorf("%w: %q must be a list (%s +)", ErrConfigShape, e.Tag, e.Tag)
			}
			if e.Tag == "scripts" {
				scripts = l
			} else {
				hosts = l
			}
		default:
			return nil, fmt.Errorf("%w: tag %q cannot be at root", ErrConfigShape, e.Tag)
		}
	}
	if hosts == nil {
		return nil, fmt.Errorf("%w: hosts list is missing", ErrConfigShape)
	}
	if scripts == nil {
		return nil, fmt.Errorf("%w: scripts list is missing", ErrConfigShape)
	}

	p := &Plan{Scripts: scripts}
	for _, e := range hosts.Entries {
		if e.Tag != "host" {
			return nil, fmt.Errorf("%w: unexpected %q in hosts", ErrConfigShape, e.Tag)
		}
		m, err := configtree.AsMap(e.Item)
		if err != nil {
			return nil, fmt.Errorf("%w: host must be a map (host -)", ErrConfigShape)
		}
		h, err := HostFromMap(m, defaultPassword)
		if err != nil {
			return nil, err
		}
		p.Hosts = append(p.Hosts, h)
	}
	return p, nil
}

// HostFromMap builds a host descriptor from a host node. host and user are
// required; port defaults to 22.
func HostFromMap(m *configtree.Map, defaultPassword string) (worker.Host, error) {
	var h worker.Host
	text := func(key string) (string, error) {
		v, err := m.Text(key)
		if err != nil {
			return "", fmt.Errorf("%w: host: %w", ErrConfigShape, err)
		}
		return strings.TrimSpace(v), nil
	}
	var err error
	if h.Host, err = text("host"); err != nil {
		return h, err
	}
	if h.Host == "" {
		return h, fmt.Errorf("%w: \"host\" tag is empty", ErrConfigShape)
	}
	if h.User, err = text("user"); err != nil {
		return h, err
	}
	if h.User == "" {
		return h, fmt.Errorf("%w: \"user\" tag is empty for %s", ErrConfigShape, h.Host)
	}
	// Passwords keep their surrounding whitespace.
	if h.Password, err = m.Text("password"); err != nil {
		return h, fmt.Errorf("%w: host: %w", ErrConfigShape, err)
	}
	if h.Password == "" {
		h.Password = defaultPassword
	}
	port, err := text("port")
	if err != nil {
		return h, err
	}
	h.Port = 22
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return h, fmt.Errorf("%w: invalid port %q for %s", ErrConfigShape, port, h.Host)
		}
		h.Port = n
	}
	return h, nil
}
