package worker

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"ssh-helper/internal/configtree"
	"ssh-helper/internal/remote"
)

// download stages orig in the session folder with sudo, fetches it with a
// local scp into <dest>/<user>@<host> and removes the staged copy.
func (w *Worker) download(node *configtree.Map) error {
	name, err := field("download", node, "name")
	if err != nil {
		return err
	}
	orig, err := required("download", node, "orig")
	if err != nil {
		return err
	}
	dest, err := required("download", node, "dest")
	if err != nil {
		return err
	}
	if (dest == "~" || strings.HasPrefix(dest, "~/")) && w.opts.LocalHome != "" {
		dest = w.opts.LocalHome + strings.TrimPrefix(dest, "~")
	}
	orig = w.expandHome(orig, w.host.User)

	r, err := w.fetch(orig, dest)
	if err != nil {
		return err
	}
	if r.ExitCode != 0 && r.Log == "" {
		r.Log = "Download failed"
	}
	w.record(name, "download", r.ExitCode, r.Log, privilegeErr(r))
	return nil
}

func (w *Worker) fetch(orig, dest string) (remote.Result, error) {
	failed := remote.Result{ExitCode: 1}
	if _, stderr, code, err := w.opts.Local.Run("mkdir", "-p", dest); err != nil || code != 0 {
		w.log.Warn().Err(err).Str("stderr", strings.TrimSpace(string(stderr))).Str("dest", dest).Msg("local mkdir failed")
		return failed, nil
	}

	stage := path.Join(w.sharedDir, orig)
	qs := remote.QuotePath(stage)
	r, err := w.ch.Run("mkdir -p " + qs)
	if err != nil {
		return r, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if r.ExitCode != 0 {
		return r, nil
	}
	defer func() {
		if _, err := w.ch.Run("rm -Rf " + qs); err != nil {
			w.log.Warn().Err(err).Str("stage", stage).Msg("remove staged download")
		}
	}()

	for _, step := range []string{
		"cp -Rf " + remote.QuotePath(orig) + " " + qs,
		"chown -R " + remote.ShellQuote(w.host.User) + " " + qs,
	} {
		r, err = w.ch.RunPrivileged(step)
		if err != nil {
			return r, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		if !r.OK() {
			return r, nil
		}
	}

	src := w.host.User + "@" + w.host.Host + ":" + stage
	dst := filepath.Join(dest, w.host.String())
	_, stderr, code, err := w.opts.Local.Run("scp", "-r", "-P", strconv.Itoa(w.host.Port), "-o", "BatchMode=yes", src, dst)
	if err != nil || code != 0 {
		w.log.Warn().Err(err).Str("stderr", strings.TrimSpace(string(stderr))).Msg("scp failed")
		return failed, nil
	}
	return remote.Result{}, nil
}
