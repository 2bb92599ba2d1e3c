package sshclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/text/encoding"
)

// lineSeparator terminates every captured output line, including the final
// one before stream closure.
const lineSeparator = "\n"

const maxOutputLineSize = 1024 * 1024

type commandState int

const (
	stateCreated commandState = iota
	stateRunning
	stateCompleted
)

// execSession is the slice of ssh.Session a command invocation needs.
// *ssh.Session satisfies it; tests substitute fakes.
type execSession interface {
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	Start(cmd string) error
	Wait() error
	Close() error
}

// remoteCommand is one exec-channel invocation: dispatched asynchronously by
// startRemoteCommand, completed exactly once inside ReadOutputs.
type remoteCommand struct {
	session execSession
	stdout  io.Reader
	stderr  io.Reader
	dec     *encoding.Decoder
	state   commandState
}

// startRemoteCommand wires the output pipes and dispatches command on the
// session. It returns as soon as the command is started.
func startRemoteCommand(session execSession, command string, dec *encoding.Decoder) (*remoteCommand, error) {
	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open command stdout: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open command stderr: %w", err)
	}

	cmd := &remoteCommand{
		session: session,
		stdout:  stdout,
		stderr:  stderr,
		dec:     dec,
		state:   stateCreated,
	}

	if err := session.Start(command); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	cmd.state = stateRunning
	return cmd, nil
}

// ReadOutputs blocks until both output streams are drained and the channel
// reports completion, then closes the channel. Callable at most once.
func (r *remoteCommand) ReadOutputs() (string, string, int, error) {
	switch r.state {
	case stateCreated:
		return "", "", 0, &SessionStateError{Op: "read outputs", Reason: "command was never started"}
	case stateCompleted:
		return "", "", 0, &SessionStateError{Op: "read outputs", Reason: "outputs already read"}
	}

	stdout, err := r.drain(r.stdout)
	if err != nil {
		r.session.Close()
		r.state = stateCompleted
		return "", "", 0, err
	}
	stderr, err := r.drain(r.stderr)
	if err != nil {
		r.session.Close()
		r.state = stateCompleted
		return "", "", 0, err
	}

	rc := exitStatus(r.session.Wait())
	r.session.Close()
	r.state = stateCompleted
	return stdout, stderr, rc, nil
}

// drain reads a stream to end-of-stream line by line, reassembling with the
// line separator so that every emitted line, including the last one before
// closure, comes back separator-terminated.
func (r *remoteCommand) drain(stream io.Reader) (string, error) {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxOutputLineSize)

	var sb strings.Builder
	for scanner.Scan() {
		sb.WriteString(decodeText(r.dec, scanner.Bytes()))
		sb.WriteString(lineSeparator)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to drain command output: %w", err)
	}
	return sb.String(), nil
}

// exitStatus maps the channel completion result to an exit code. A channel
// that closed without reporting a status (killed process, abnormal close)
// counts as 0; that tolerance is part of the contract.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return 0
}
