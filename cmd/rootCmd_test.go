package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ssh-helper/internal/remote"
	"ssh-helper/internal/tools"
	"ssh-helper/internal/worker"
)

// Helper to write a file inside dir.
func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// resetConfig clears global configuration so tests don't leak state, and
// restores the seams when the test ends.
func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	bindEnv()
	for _, fs := range []*pflag.FlagSet{rootCmd.Flags(), rootCmd.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	cfgStdin = false
	cfgPrintTree = false

	origChannel, origRunner := newChannelFunc, localRunner
	origStdin, origPrompt := stdinReader, readPasswordFunc
	t.Cleanup(func() {
		newChannelFunc, localRunner = origChannel, origRunner
		stdinReader, readPasswordFunc = origStdin, origPrompt
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	localRunner = &tools.RecordingRunner{}
}

// fleet records what every stub host was asked to do.
type fleet struct {
	mu       sync.Mutex
	commands map[string][]string
}

func newFleet() *fleet { return &fleet{commands: map[string][]string{}} }

func (f *fleet) add(host, cmd string) {
	f.mu.Lock()
	f.commands[host] = append(f.commands[host], cmd)
	f.mu.Unlock()
}

func (f *fleet) of(host string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands[host]...)
}

func (f *fleet) install() {
	newChannelFunc = func(h worker.Host) remote.Channel { return &stubChannel{host: h.Host, fleet: f} }
}

type stubChannel struct {
	host  string
	fleet *fleet
}

func (c *stubChannel) Connect(user, password string) error {
	c.fleet.add(c.host, "connect "+user+"/"+password)
	return nil
}

func (c *stubChannel) Run(cmd string) (remote.Result, error) {
	c.fleet.add(c.host, cmd)
	return remote.Result{}, nil
}

func (c *stubChannel) RunInput(cmd string, _ []byte) (remote.Result, error) { return c.Run(cmd) }

func (c *stubChannel) RunCapture(cmd string) (remote.Result, error) {
	c.fleet.add(c.host, cmd)
	if strings.Contains(cmd, "$HOME") {
		return remote.Result{Output: []byte("/home/ops")}, nil
	}
	return remote.Result{}, nil
}

func (c *stubChannel) RunPrivileged(cmd string) (remote.Result, error) { return c.Run(cmd) }

func (c *stubChannel) RunPrivilegedCapture(cmd string) (remote.Result, error) {
	return c.RunCapture(cmd)
}

func (c *stubChannel) PushFile(_, p string) error { c.fleet.add(c.host, "push "+p); return nil }
func (c *stubChannel) PushText(_, p string) error { c.fleet.add(c.host, "push "+p); return nil }
func (c *stubChannel) Close() error               { return nil }

const twoHostScripts = "hosts +\n" +
	"\thost -\n\t\thost: alpha\n\t\tuser: ops\n" +
	"\thost -\n\t\thost: beta\n\t\tpassword: own\n\t\tuser: ops\n" +
	"scripts +\n" +
	"\tscript -\n\t\tcommand: echo hi\n\t\tname: greet\n"

// writeKeyPair creates a placeholder key pair so no ssh-keygen is needed.
func writeKeyPair(t *testing.T, dir string) string {
	t.Helper()
	key := writeTemp(t, dir, "id_rsa", "private")
	writeTemp(t, dir, "id_rsa.pub", "ssh-rsa AAAAB3 me@here\n")
	return key
}

func TestRoot_RunsScriptsOnEveryHost(t *testing.T) {
	resetConfig(t)
	f := newFleet()
	f.install()

	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", twoHostScripts)
	logs := filepath.Join(tmp, "logs")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{scripts, "--password", "pw", "--log_path", logs, "--key", writeKeyPair(t, tmp)})

	require.NoError(t, rootCmd.Execute())

	require.Contains(t, out.String(), "Session id: ")
	require.Contains(t, out.String(), "ops@alpha: done\n")
	require.Contains(t, out.String(), "ops@beta: done\n")
	require.Contains(t, out.String(), "2 host(s), 0 failed")
	for _, host := range []string{"alpha", "beta"} {
		b, err := os.ReadFile(filepath.Join(logs, "ops@"+host+".txt"))
		require.NoError(t, err)
		require.Equal(t, "greet: OK\n", string(b))
		require.Contains(t, f.of(host), "echo hi")
	}
	require.Equal(t, "connect ops/pw", f.of("alpha")[0])
	require.Equal(t, "connect ops/own", f.of("beta")[0])
	require.Contains(t, f.of("alpha"), "grep -qxF 'ssh-rsa AAAAB3 me@here' ~/.ssh/authorized_keys")
}

func TestRoot_PrintTreeAndReport(t *testing.T) {
	resetConfig(t)
	newFleet().install()

	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", twoHostScripts)
	reportPath := filepath.Join(tmp, "report.yaml")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		scripts, "--password", "pw", "--log-path", filepath.Join(tmp, "logs"),
		"--key", writeKeyPair(t, tmp), "--print-tree", "--report", reportPath,
	})

	require.NoError(t, rootCmd.Execute())
	require.True(t, strings.HasPrefix(out.String(), twoHostScripts), out.String())

	b, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(b, &doc))
	require.Equal(t, scripts, doc["scripts"])
	require.Len(t, doc["hosts"], 2)
}

func TestRoot_NoMultiRunsHostsInOrder(t *testing.T) {
	resetConfig(t)
	f := newFleet()
	var (
		mu    sync.Mutex
		order []string
	)
	newChannelFunc = func(h worker.Host) remote.Channel {
		return &orderedChannel{stubChannel: stubChannel{host: h.Host, fleet: f}, mu: &mu, order: &order}
	}

	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", twoHostScripts)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{scripts, "--password", "pw", "--no-multi", "--log_path", tmp, "--key", writeKeyPair(t, tmp)})

	require.NoError(t, rootCmd.Execute())
	require.Equal(t, []string{"alpha", "beta"}, order)
}

type orderedChannel struct {
	stubChannel
	mu    *sync.Mutex
	order *[]string
}

func (c *orderedChannel) Run(cmd string) (remote.Result, error) {
	if cmd == "echo hi" {
		c.mu.Lock()
		*c.order = append(*c.order, c.host)
		c.mu.Unlock()
	}
	return c.stubChannel.Run(cmd)
}

func TestRoot_PasswordFromEnvironment(t *testing.T) {
	resetConfig(t)
	t.Setenv("SSH_HELPER_PASSWORD", "from-env")
	f := newFleet()
	f.install()

	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", twoHostScripts)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{scripts, "--log_path", tmp, "--key", writeKeyPair(t, tmp)})

	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "connect ops/from-env", f.of("alpha")[0])
}

func TestRoot_PasswordFromStdin(t *testing.T) {
	resetConfig(t)
	stdinReader = strings.NewReader("  s3cret trailing words\n")
	f := newFleet()
	f.install()

	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", twoHostScripts)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{scripts, "--stdin", "--log_path", tmp, "--key", writeKeyPair(t, tmp)})

	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "connect ops/s3cret", f.of("alpha")[0])
}

func TestRoot_ParseErrorContactsNoHost(t *testing.T) {
	resetConfig(t)
	f := newFleet()
	f.install()

	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", "hosts +\n\tbogus: x\n")
	rootCmd.SetArgs([]string{scripts, "--password", "pw", "--log_path", tmp})

	err := rootCmd.Execute()
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, exitRuntime, ee.Code)
	require.Empty(t, f.of("alpha"))
}
