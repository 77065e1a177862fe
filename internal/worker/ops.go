package worker

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"ssh-helper/internal/configtree"
	"ssh-helper/internal/remote"
)

// run interprets ops in order. monitor nodes recurse into run with their own
// sub-lists.
func (w *Worker) run(ctx context.Context, ops *configtree.List) error {
	if ops == nil {
		return nil
	}
	for _, e := range ops.Entries {
		node, err := configtree.AsMap(e.Item)
		if err != nil {
			return fmt.Errorf("%w: %q must be a map (%s -)", ErrConfigShape, e.Tag, e.Tag)
		}
		switch e.Tag {
		case "script":
			err = w.script(node)
		case "upload":
			err = w.upload(ctx, node)
		case "download":
			err = w.download(node)
		case "monitor":
			err = w.monitor(ctx, node)
		default:
			err = fmt.Errorf("%w: unknown operation %q", ErrConfigShape, e.Tag)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// field returns the trimmed text under key, failing when the node holds a
// container there.
func field(op string, node *configtree.Map, key string) (string, error) {
	v, err := node.Text(key)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrConfigShape, op, err)
	}
	return strings.TrimSpace(v), nil
}

func required(op string, node *configtree.Map, key string) (string, error) {
	v, err := field(op, node, key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s: %s tag is missing", ErrConfigShape, op, key)
	}
	return v, nil
}

func (w *Worker) script(node *configtree.Map) error {
	raw, err := node.Text("command")
	if err != nil {
		return fmt.Errorf("%w: script: %w", ErrConfigShape, err)
	}
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: script: command tag is missing", ErrConfigShape)
	}
	name, err := field("script", node, "name")
	if err != nil {
		return err
	}
	args, err := node.Text("args")
	if err != nil {
		return fmt.Errorf("%w: script: %w", ErrConfigShape, err)
	}
	sudo, err := field("script", node, "sudo")
	if err != nil {
		return err
	}
	stopOnError, err := field("script", node, "stop_on_error")
	if err != nil {
		return err
	}

	command := raw + scriptArgs(args)
	var r remote.Result
	if sudo != "" {
		p := path.Join(w.sharedDir, "sudo_script.sh")
		if err := w.ch.PushText(command+"\n", p); err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		w.log.Info().Str("command", raw).Msg("sudo")
		r, err = w.ch.RunPrivileged("bash " + remote.ShellQuote(p))
	} else {
		w.log.Info().Str("command", raw).Msg("$")
		r, err = w.ch.Run(command)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var opErr error
	if sudo != "" && r.ExitCode == remote.NotPrivileged {
		opErr = ErrPrivilege
	}
	w.record(name, "script", r.ExitCode, r.Log, opErr)

	if stopOnError != "" && r.ExitCode != 0 {
		return fmt.Errorf("%w: script %q exited %d", ErrStopOnError, name, r.ExitCode)
	}
	return nil
}

// scriptArgs turns an args block, one argument per line, into a quoted
// suffix for the command line.
func scriptArgs(block string) string {
	var sb strings.Builder
	for _, a := range strings.Split(block, "\n") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(remote.ShellQuote(a))
	}
	return sb.String()
}

func (w *Worker) monitor(ctx context.Context, node *configtree.Map) error {
	threads, err := required("monitor", node, "threads")
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(threads)
	if err != nil || n < 1 {
		return fmt.Errorf("%w: monitor: threads must be a positive number, got %q", ErrConfigShape, threads)
	}
	locked, ok, err := node.List("scripts_lock")
	if err != nil {
		return fmt.Errorf("%w: monitor: %w", ErrConfigShape, err)
	}
	if !ok {
		return fmt.Errorf("%w: monitor: scripts_lock tag is missing", ErrConfigShape)
	}
	free, _, err := node.List("scripts")
	if err != nil {
		return fmt.Errorf("%w: monitor: %w", ErrConfigShape, err)
	}

	gate := w.shared.Gate(node, int64(n))
	if gate.TryEnter() {
		w.log.Debug().Int64("capacity", gate.Capacity()).Msg("monitor entered")
		if err := w.runLocked(ctx, gate, locked); err != nil {
			return err
		}
		return w.run(ctx, free)
	}

	w.log.Debug().Int64("capacity", gate.Capacity()).Msg("monitor busy, running unlocked scripts first")
	if err := w.run(ctx, free); err != nil {
		return err
	}
	if err := gate.Enter(ctx); err != nil {
		return err
	}
	return w.runLocked(ctx, gate, locked)
}

type leaver interface{ Leave() }

func (w *Worker) runLocked(ctx context.Context, g leaver, ops *configtree.List) error {
	defer g.Leave()
	return w.run(ctx, ops)
}
