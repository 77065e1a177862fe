package tools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecRunner_ExitCodes(t *testing.T) {
	out, _, code, err := ExecRunner{}.Run("sh", "-c", "printf ok")
	require.NoError(t, err)
	require.Equal(t, int32(0), code)
	require.Equal(t, "ok", string(out))

	_, _, code, err = ExecRunner{}.Run("sh", "-c", "exit 4")
	require.Error(t, err)
	require.Equal(t, int32(4), code)

	_, _, code, err = ExecRunner{}.Run("definitely-not-a-command-xyz")
	require.Error(t, err)
	require.Equal(t, int32(127), code)
}

func TestRecordingRunner(t *testing.T) {
	r := &RecordingRunner{}
	_, _, code, err := r.Run("mkdir", "-p", "/tmp/x")
	require.NoError(t, err)
	require.Equal(t, int32(0), code)
	require.Equal(t, []string{"mkdir -p /tmp/x"}, r.Calls())
}
