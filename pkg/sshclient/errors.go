package sshclient

import "fmt"

// ConnectionError reports a transport-level failure while establishing the
// connection. It is never retried internally.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthenticationError reports a rejected authentication attempt. A key file
// that is missing, unreadable or malformed surfaces as this same kind as a
// key the server rejected; callers cannot tell the two apart by error type.
type AuthenticationError struct {
	User string
	Err  error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for user %q: %v", e.User, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RemoteIOError reports an SFTP operation failing against the remote side:
// missing path, permission denial, or a backend I/O fault.
type RemoteIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *RemoteIOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteIOError) Unwrap() error { return e.Err }

// SessionStateError reports a caller contract violation: operating on a
// closed connection, or reading a command's outputs twice.
type SessionStateError struct {
	Op     string
	Reason string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}
