package sshclient

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopWriteCloser struct {
	bytes.Buffer
}

func (*nopWriteCloser) Close() error { return nil }

func newBufferedShell(t *testing.T) (*shellSession, io.WriteCloser, *nopWriteCloser) {
	t.Helper()
	stdoutR, stdoutW := io.Pipe()
	stdin := &nopWriteCloser{}
	shell := newShellSession(nil, stdin, stdoutR, nopDecoder())
	t.Cleanup(func() { stdoutW.Close() })
	return shell, stdoutW, stdin
}

func TestShellReadIsNonBlocking(t *testing.T) {
	shell, _, _ := newBufferedShell(t)

	// Nothing has arrived yet; both read shapes return immediately.
	assert.Equal(t, "", shell.Read())
	assert.Equal(t, "", shell.ReadByte())
}

func TestShellReadDrainsBufferedOutput(t *testing.T) {
	shell, stdout, _ := newBufferedShell(t)

	_, err := stdout.Write([]byte("login banner\n$ "))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return shell.Read() == "login banner\n$ "
	}, time.Second, 5*time.Millisecond)

	// Drained once, the buffer is empty again.
	assert.Equal(t, "", shell.Read())
}

func TestShellReadByteTakesOneCharacter(t *testing.T) {
	shell, stdout, _ := newBufferedShell(t)

	_, err := stdout.Write([]byte("ok"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return shell.ReadByte() == "o"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "k", shell.ReadByte())
	assert.Equal(t, "", shell.ReadByte())
}

func TestShellWriteReachesStdin(t *testing.T) {
	shell, _, stdin := newBufferedShell(t)

	require.NoError(t, shell.Write("echo hi\n"))
	assert.Equal(t, "echo hi\n", stdin.String())
}

func TestShellSurvivesStdoutClosure(t *testing.T) {
	shell, stdout, _ := newBufferedShell(t)

	_, err := stdout.Write([]byte("bye"))
	require.NoError(t, err)
	stdout.Close()

	// Output that arrived before closure stays readable.
	require.Eventually(t, func() bool {
		return shell.Read() == "bye"
	}, time.Second, 5*time.Millisecond)
}
