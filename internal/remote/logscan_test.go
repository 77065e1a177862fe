package remote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogScanner_CapturesSentinelLines(t *testing.T) {
	s := &LogScanner{}
	_, _ = s.Write([]byte("plain output\n##log: step one\nmore\n"))
	_, _ = s.Write([]byte("##lo"))
	_, _ = s.Write([]byte("g:split\n"))
	require.Equal(t, " step one\nsplit\n", s.Log())
}

func TestLogScanner_MismatchResets(t *testing.T) {
	s := &LogScanner{}
	_, _ = s.Write([]byte("#log: no\n##lag: no\n## log: no\n"))
	require.Equal(t, "", s.Log())
}

func TestLogScanner_UnterminatedLine(t *testing.T) {
	s := &LogScanner{}
	_, _ = s.Write([]byte("x ##log:tail"))
	require.Equal(t, "tail", s.Log())
}

func TestShellQuote(t *testing.T) {
	require.Equal(t, "simple", ShellQuote("simple"))
	require.Equal(t, "''", ShellQuote(""))
	require.Equal(t, "'two words'", ShellQuote("two words"))
	require.Equal(t, `'a'\''b'`, ShellQuote("a'b"))
	require.Equal(t, "/path/ok", ShellQuote("/path/ok"))
	require.Equal(t, "~/'a b'", QuotePath("~/a b"))
	require.Equal(t, "~", QuotePath("~"))
	require.Equal(t, "'/x/~y z'", QuotePath("/x/~y z"))
}
