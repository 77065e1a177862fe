package worker

import (
	"context"
	"fmt"
	"path"
	"strings"

	"ssh-helper/internal/configtree"
	"ssh-helper/internal/remote"
	"ssh-helper/internal/session"
)

type upload struct {
	name      string
	orig      string
	dest      string
	destPath  string
	md5       string
	finalUser string
	// privileged is set when the file belongs to another user and every
	// step has to go through sudo.
	privileged bool
	staged     string
}

func (w *Worker) parseUpload(node *configtree.Map) (*upload, error) {
	u := &upload{}
	var err error
	if u.name, err = field("upload", node, "name"); err != nil {
		return nil, err
	}
	if u.orig, err = required("upload", node, "orig"); err != nil {
		return nil, err
	}
	if u.dest, err = required("upload", node, "dest"); err != nil {
		return nil, err
	}
	if u.md5, err = required("upload", node, "md5"); err != nil {
		return nil, err
	}
	if u.finalUser, err = field("upload", node, "user"); err != nil {
		return nil, err
	}
	if u.finalUser == "" {
		u.finalUser = w.host.User
	}
	u.privileged = u.finalUser != w.host.User
	u.dest = w.expandHome(u.dest, u.finalUser)
	u.destPath = path.Join(u.dest, path.Base(u.orig))
	u.staged = path.Join(w.sharedDir, u.destPath)
	return u, nil
}

// expandHome replaces a leading "~" with the home of user on the remote
// host.
func (w *Worker) expandHome(p, user string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home := w.home
	if user != w.host.User {
		home = "/home/" + user
	}
	return home + strings.TrimPrefix(p, "~")
}

func (w *Worker) upload(ctx context.Context, node *configtree.Map) error {
	u, err := w.parseUpload(node)
	if err != nil {
		return err
	}
	ulog := w.log.With().Str("dest", u.destPath).Logger()

	sum, r, err := w.remoteMD5(u.destPath, u.privileged)
	if err != nil {
		return err
	}
	if r.ExitCode == remote.NotPrivileged {
		w.record(u.name, "upload", r.ExitCode, r.Log, ErrPrivilege)
		return nil
	}
	if sum == u.md5 {
		ulog.Info().Msg("file already in place")
		w.record(u.name, "upload", 0, "", nil)
		return nil
	}

	existed, pool := w.shared.Seeds(u.md5)
	if !existed {
		ulog.Info().Str("orig", u.orig).Msg("no seeds, uploading from origin")
		if err := w.ch.PushFile(u.orig, u.staged); err != nil {
			w.record(u.name, "upload", 1, err.Error(), err)
			return fmt.Errorf("%w: upload %s: %v", ErrTransport, u.orig, err)
		}
		pool.Add(w.seed(u.staged))
		r, err := w.install(u)
		if err != nil {
			return err
		}
		w.record(u.name, "upload", r.ExitCode, r.Log, privilegeErr(r))
		return nil
	}

	ulog.Info().Msg("waiting for a seed")
	seed, err := pool.Take(ctx)
	if err != nil {
		return err
	}
	ulog.Info().Str("seed", seed.User+"@"+seed.Host).Msg("relaying from seed")

	r, err = w.relay(seed, u.staged)
	if err != nil {
		pool.Add(seed)
		return err
	}
	if r.ExitCode != 0 {
		pool.Add(seed)
		w.record(u.name, "upload", r.ExitCode, r.Log, privilegeErr(r))
		return nil
	}

	staged, _, err := w.remoteMD5(u.staged, false)
	if err != nil {
		pool.Add(seed)
		return err
	}
	if staged != u.md5 {
		pool.Add(seed)
		w.record(u.name, "upload", 1, "", fmt.Errorf("%w: %s", ErrIntegrity, u.staged))
		return nil
	}
	pool.Add(w.seed(u.staged))
	pool.Add(seed)

	if r, err = w.install(u); err != nil {
		return err
	}
	if r.ExitCode != 0 {
		w.record(u.name, "upload", r.ExitCode, r.Log, privilegeErr(r))
		return nil
	}
	final, _, err := w.remoteMD5(u.destPath, u.privileged)
	if err != nil {
		return err
	}
	if final != u.md5 {
		w.record(u.name, "upload", 1, "", fmt.Errorf("%w: %s", ErrIntegrity, u.destPath))
		return nil
	}
	w.record(u.name, "upload", 0, "", nil)
	return nil
}

func (w *Worker) seed(p string) session.Seed {
	return session.Seed{User: w.host.User, Host: w.host.Host, Password: w.host.Password, Path: p}
}

// remoteMD5 returns the md5 of p on the host, or "" when it cannot be read.
func (w *Worker) remoteMD5(p string, privileged bool) (string, remote.Result, error) {
	cmd := "md5sum -b " + remote.QuotePath(p) + " 2>/dev/null | awk '{print $1}'"
	var (
		r   remote.Result
		err error
	)
	if privileged {
		r, err = w.ch.RunPrivilegedCapture(cmd)
	} else {
		r, err = w.ch.RunCapture(cmd)
	}
	if err != nil {
		return "", r, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if r.ExitCode != 0 {
		return "", r, nil
	}
	return strings.TrimSpace(string(r.Output)), r, nil
}

// relay copies seed's file to dst on this host with scp run remotely. The
// askpass helper answers scp's password prompt with the seed password fed on
// stdin.
func (w *Worker) relay(seed session.Seed, dst string) (remote.Result, error) {
	helper := path.Join(w.sharedDir, "askpass.py")
	if !w.askpassReady {
		if err := w.ch.PushText(askpassScript, helper); err != nil {
			return remote.Result{}, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		w.askpassReady = true
	}
	if err := w.mustRun("mkdir -p " + remote.QuotePath(path.Dir(dst))); err != nil {
		return remote.Result{}, err
	}
	cmd := fmt.Sprintf("python3 %s scp -o StrictHostKeyChecking=accept-new %s %s",
		remote.ShellQuote(helper), remote.ShellQuote(seed.URI()), remote.QuotePath(dst))
	r, err := w.ch.RunInput(cmd, []byte(seed.Password+"\n"))
	if err != nil {
		return r, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return r, nil
}

// install copies the staged file into place with mode 600, through sudo and
// owned by the target user when the upload is privileged. It stops at the
// first failing step and returns its result.
func (w *Worker) install(u *upload) (remote.Result, error) {
	dst := remote.QuotePath(u.destPath)
	steps := []string{
		"mkdir -p " + remote.QuotePath(u.dest),
		"cp " + remote.QuotePath(u.staged) + " " + dst,
		"chmod 600 " + dst,
	}
	if u.privileged {
		steps = append(steps, "chown "+remote.ShellQuote(u.finalUser)+" "+dst)
	}
	var r remote.Result
	for _, s := range steps {
		var err error
		if u.privileged {
			r, err = w.ch.RunPrivileged(s)
		} else {
			r, err = w.ch.Run(s)
		}
		if err != nil {
			return r, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		if !r.OK() {
			if r.ExitCode == remote.NotPrivileged {
				w.log.Warn().Msg("install needs sudo")
			}
			return r, nil
		}
	}
	return r, nil
}

// privilegeErr maps the NotPrivileged exit code to ErrPrivilege.
func privilegeErr(r remote.Result) error {
	if r.ExitCode == remote.NotPrivileged {
		return ErrPrivilege
	}
	return nil
}
