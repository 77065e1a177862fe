package worker

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"ssh-helper/internal/remote"
	"ssh-helper/internal/session"
)

// StaleAfter is the age past which leftover session folders are removed.
const StaleAfter = 5 * 24 * time.Hour

// Drain removes the session folder, prunes stale folders of earlier sessions
// and closes the channel. It does nothing for a worker that never connected.
func (w *Worker) Drain() error {
	if !w.Connected() {
		return nil
	}
	w.setState(StateDraining)
	w.log.Debug().Msg("cleaning temp folder")

	var errs []error
	if w.sharedDir != "" {
		if _, err := w.ch.Run("rm -Rf " + remote.QuotePath(w.sharedDir)); err != nil {
			errs = append(errs, err)
		}
	}
	if w.home != "" {
		root := w.tempRoot()
		r, err := w.ch.RunCapture("ls -1 " + remote.QuotePath(root))
		switch {
		case err != nil:
			errs = append(errs, err)
		case r.ExitCode == 0:
			for _, name := range staleSessionDirs(strings.Split(string(r.Output), "\n"), w.opts.Now()) {
				w.log.Info().Str("dir", name).Msg("removing stale session folder")
				if _, err := w.ch.Run("rm -Rf " + remote.QuotePath(path.Join(root, name))); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	if err := w.ch.Close(); err != nil {
		errs = append(errs, err)
	}
	w.setState(StateDone)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: drain %s: %v", ErrTransport, w.host, err)
	}
	return nil
}

// staleSessionDirs returns the entries of listing whose embedded date is more
// than StaleAfter before now. Entries without a date prefix are ignored.
func staleSessionDirs(listing []string, now time.Time) []string {
	var out []string
	for _, name := range listing {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, "/") {
			continue
		}
		d, ok := session.IDDate(name, now.Location())
		if !ok {
			continue
		}
		if now.Sub(d) > StaleAfter {
			out = append(out, name)
		}
	}
	return out
}
