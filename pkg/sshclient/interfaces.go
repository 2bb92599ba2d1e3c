package sshclient

import (
	"io"
	"os"
)

// Client is the backend-agnostic remote-access contract. Every backend
// variant satisfies it identically so calling code never depends on the
// concrete transport implementation.
//
// Lifecycle: Connect establishes the transport, one of the Authenticate
// methods completes the handshake, and only then can shell, command and SFTP
// sessions be opened. Close releases the transport and invalidates every
// session derived from it; a closed client permits no further operations.
type Client interface {
	// Connect establishes the transport connection. Transport failures
	// surface as *ConnectionError.
	Connect() error

	// Authenticate performs password authentication. A rejection surfaces
	// as *AuthenticationError; a failed handshake consumes the transport,
	// so the caller must Connect again before retrying.
	Authenticate(username, password string) error

	// AuthenticateWithKey performs public-key authentication with the key
	// at keyfile, optionally protected by passphrase. Any error touching
	// the key file (missing, unreadable, malformed) is folded into the
	// same *AuthenticationError kind as a key the server rejected.
	AuthenticateWithKey(username, keyfile, passphrase string) error

	// OpenShell requests a PTY with the configured terminal type and
	// dimensions and starts an interactive shell. At most one shell per
	// client; opening a second one while the first is live fails with a
	// *SessionStateError.
	OpenShell() error

	// Read returns all currently buffered shell output decoded as text,
	// or the empty string when nothing is available. It never blocks
	// waiting for more data.
	Read() (string, error)

	// ReadByte returns a single decoded character of shell output if one
	// is available, else the empty string. Non-blocking.
	ReadByte() (string, error)

	// Write sends text to the shell's input stream and forces delivery to
	// the transport before returning.
	Write(text string) error

	// StartCommand opens a fresh exec channel and starts the command
	// asynchronously. Completion is observed via the returned session's
	// ReadOutputs.
	StartCommand(command string) (Command, error)

	// NewSFTP returns an SFTP session bound to this client's connection.
	// May be called multiple times.
	NewSFTP() (SFTP, error)

	// Close releases the connection and all subordinate sessions.
	Close() error
}

// Command is one exec-channel invocation. It is not reusable; each execution
// comes from a fresh StartCommand call.
type Command interface {
	// ReadOutputs blocks until the command's stdout and stderr streams
	// reach end-of-stream, then returns the captured text and the exit
	// status. When the channel reports no status (for example the remote
	// process was killed), the exit code defaults to 0. ReadOutputs may
	// be called at most once; the underlying channel is closed as its
	// final action.
	ReadOutputs() (stdout, stderr string, exitCode int, err error)
}

// DirEntry is one remote directory listing entry. Permissions for a listed
// entry live in the backend attributes reachable through Info; Permissions
// knows how to extract them from either shape.
type DirEntry struct {
	Name string
	Info os.FileInfo
}

// RemoteFile is an open handle into a remote file. It must be closed exactly
// once after use, on every exit path.
type RemoteFile interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// SFTP is the file-transfer session contract.
type SFTP interface {
	// List returns the entries of a remote directory.
	List(path string) ([]DirEntry, error)

	// Permissions extracts the permission bits from a directory listing
	// entry or a freshly stat'd file info, returning the same semantic
	// value for either shape.
	Permissions(entry interface{}) (os.FileMode, error)

	// EnsureRemotePath idempotently creates every missing segment of a
	// remote directory path, rooted at / for absolute input or at the
	// session working directory for relative input.
	EnsureRemotePath(path string) error

	// CreateRemoteFile creates or truncates the destination file and
	// best-effort applies mode; a backend that rejects the permission
	// change does not fail the creation.
	CreateRemoteFile(dest string, mode os.FileMode) (RemoteFile, error)

	// WriteChunk writes data at byte offset within the remote file. The
	// caller sequences offsets; nothing is buffered or reordered here.
	WriteChunk(f RemoteFile, data []byte, offset int64) error

	// CloseRemoteFile releases the handle.
	CloseRemoteFile(f RemoteFile) error

	// DownloadFile copies the remote file to localPath in fixed-size
	// chunks, writing incrementally and trimming the final chunk to the
	// remote file's stat'd size.
	DownloadFile(remotePath, localPath string) error

	// UploadFile copies the local file to remotePath in fixed-size
	// chunks, creating missing remote directories first and applying
	// mode to the new file.
	UploadFile(localPath, remotePath string, mode os.FileMode) error

	// AbsolutePath resolves a possibly-relative remote path to its
	// canonical absolute form.
	AbsolutePath(path string) (string, error)

	// Close releases the SFTP channel.
	Close() error
}
