package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureExit stubs exitFunc and reports the code it was called with, or -1.
func captureExit(t *testing.T) *int {
	t.Helper()
	code := -1
	orig := exitFunc
	t.Cleanup(func() { exitFunc = orig })
	exitFunc = func(c int) { code = c }
	return &code
}

func TestExecute_Success_NoExit(t *testing.T) {
	resetConfig(t)
	newFleet().install()
	code := captureExit(t)

	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", twoHostScripts)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{scripts, "--password", "pw", "--log_path", tmp, "--key", writeKeyPair(t, tmp)})

	Execute()
	require.Equal(t, -1, *code)
}

func TestExecute_ExitCodes(t *testing.T) {
	tmp := t.TempDir()
	scripts := writeTemp(t, tmp, "scripts.txt", twoHostScripts)
	badTags := writeTemp(t, tmp, "bad.txt", "hosts +\n\tnope: 1\n")

	cases := []struct {
		name   string
		args   []string
		prompt func() (string, error)
		want   int
	}{
		{name: "missing scripts file", args: []string{}, want: exitNoScripts},
		{name: "extra argument", args: []string{scripts, "other"}, want: exitBadArgs},
		{name: "unknown flag", args: []string{scripts, "--bogus"}, want: exitBadArgs},
		{name: "unreadable scripts file", args: []string{filepath.Join(tmp, "missing.txt"), "--password", "pw"}, want: exitRuntime},
		{name: "unknown tag", args: []string{badTags, "--password", "pw"}, want: exitRuntime},
		{
			name:   "no password",
			args:   []string{scripts, "--log_path", tmp},
			prompt: func() (string, error) { return "", errors.New("standard input is not a terminal") },
			want:   exitNoPassword,
		},
		{name: "bad log level", args: []string{scripts, "--log-level", "loud"}, want: exitBadArgs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resetConfig(t)
			newFleet().install()
			if tc.prompt != nil {
				readPasswordFunc = tc.prompt
			}
			code := captureExit(t)
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetArgs(tc.args)

			Execute()
			require.Equal(t, tc.want, *code)
		})
	}
}
