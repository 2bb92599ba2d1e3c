package sshclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	gopath "path"
	"strings"

	"github.com/pkg/sftp"

	"github.com/remotekit/sshkit/pkg/config"
	"github.com/remotekit/sshkit/pkg/logger"
)

// transferChunkSize is the fixed window for chunked file transfer in both
// directions.
const transferChunkSize = 4096

// sftpBackend is the slice of the SFTP protocol the session drives. The
// native implementation wraps *sftp.Client; tests substitute fakes.
type sftpBackend interface {
	ReadDir(path string) ([]os.FileInfo, error)
	Stat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	Chmod(path string, mode os.FileMode) error
	OpenRead(path string) (RemoteFile, error)
	OpenWrite(path string) (RemoteFile, error)
	RealPath(path string) (string, error)
	Close() error
}

type sftpClientBackend struct {
	client *sftp.Client
}

func (b *sftpClientBackend) ReadDir(path string) ([]os.FileInfo, error) {
	return b.client.ReadDir(path)
}

func (b *sftpClientBackend) Stat(path string) (os.FileInfo, error) {
	return b.client.Stat(path)
}

func (b *sftpClientBackend) Mkdir(path string) error {
	return b.client.Mkdir(path)
}

func (b *sftpClientBackend) Chmod(path string, mode os.FileMode) error {
	return b.client.Chmod(path, mode)
}

func (b *sftpClientBackend) OpenRead(path string) (RemoteFile, error) {
	return b.client.Open(path)
}

func (b *sftpClientBackend) OpenWrite(path string) (RemoteFile, error) {
	return b.client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

func (b *sftpClientBackend) RealPath(path string) (string, error) {
	return b.client.RealPath(path)
}

func (b *sftpClientBackend) Close() error {
	return b.client.Close()
}

// sftpSession implements SFTP on top of an sftpBackend.
type sftpSession struct {
	backend sftpBackend
	log     *logger.Logger
}

func newSFTPSession(backend sftpBackend) *sftpSession {
	return &sftpSession{
		backend: backend,
		log:     logger.Get(),
	}
}

func (s *sftpSession) List(path string) ([]DirEntry, error) {
	infos, err := s.backend.ReadDir(path)
	if err != nil {
		return nil, &RemoteIOError{Op: "list", Path: path, Err: err}
	}
	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, DirEntry{Name: info.Name(), Info: info})
	}
	return entries, nil
}

// Permissions extracts permission bits from either entry shape: a directory
// listing entry carries them nested in its backend attributes, a freshly
// stat'd file info carries them at top level. Both come back as the same
// semantic value.
func (s *sftpSession) Permissions(entry interface{}) (os.FileMode, error) {
	switch e := entry.(type) {
	case DirEntry:
		if stat, ok := e.Info.Sys().(*sftp.FileStat); ok {
			return os.FileMode(stat.Mode).Perm(), nil
		}
		return e.Info.Mode().Perm(), nil
	case os.FileInfo:
		return e.Mode().Perm(), nil
	case *sftp.FileStat:
		return os.FileMode(e.Mode).Perm(), nil
	default:
		return 0, fmt.Errorf("unsupported directory entry type %T", entry)
	}
}

// EnsureRemotePath creates every missing segment of path, extending from /
// for absolute input or from the session working directory for relative
// input. Pre-existing segments are accepted silently; a failed stat is the
// signal to create, not an error to propagate.
func (s *sftpSession) EnsureRemotePath(path string) error {
	var current string
	if strings.HasPrefix(path, "/") {
		current = "/"
	} else {
		wd, err := s.backend.RealPath(".")
		if err != nil {
			return &RemoteIOError{Op: "resolve working directory", Err: err}
		}
		current = wd
	}

	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		current = gopath.Join(current, segment)
		if _, err := s.backend.Stat(current); err == nil {
			continue
		}
		if err := s.backend.Mkdir(current); err != nil {
			return &RemoteIOError{Op: "mkdir", Path: current, Err: err}
		}
		if err := s.backend.Chmod(current, config.DefaultDirMode); err != nil {
			return &RemoteIOError{Op: "chmod", Path: current, Err: err}
		}
	}
	return nil
}

// CreateRemoteFile creates or truncates dest and best-effort applies mode.
// A backend that rejects the permission change does not fail the creation;
// that is the one swallowed error in this package.
func (s *sftpSession) CreateRemoteFile(dest string, mode os.FileMode) (RemoteFile, error) {
	f, err := s.backend.OpenWrite(dest)
	if err != nil {
		return nil, &RemoteIOError{Op: "create", Path: dest, Err: err}
	}
	if err := s.backend.Chmod(dest, mode); err != nil {
		s.log.Debugf("ignoring chmod %o failure on %s: %v", mode, dest, err)
	}
	return f, nil
}

func (s *sftpSession) WriteChunk(f RemoteFile, data []byte, offset int64) error {
	if _, err := f.WriteAt(data, offset); err != nil {
		return &RemoteIOError{Op: "write chunk", Err: err}
	}
	return nil
}

func (s *sftpSession) CloseRemoteFile(f RemoteFile) error {
	if err := f.Close(); err != nil {
		return &RemoteIOError{Op: "close remote file", Err: err}
	}
	return nil
}

// DownloadFile copies remotePath to localPath. The remote stat size is
// authoritative: the final chunk is trimmed to it, because a fixed-size read
// window can return more bytes than remain. The loop ends on the backend's
// end-of-data signal, and the remote handle is closed no matter how the
// transfer went.
func (s *sftpSession) DownloadFile(remotePath, localPath string) error {
	info, err := s.backend.Stat(remotePath)
	if err != nil {
		return &RemoteIOError{Op: "stat", Path: remotePath, Err: err}
	}
	remoteSize := info.Size()

	remote, err := s.backend.OpenRead(remotePath)
	if err != nil {
		return &RemoteIOError{Op: "open", Path: remotePath, Err: err}
	}
	defer remote.Close()

	local, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer local.Close()
	w := bufio.NewWriter(local)

	chunk := make([]byte, transferChunkSize)
	var offset int64
	for {
		n, readErr := remote.ReadAt(chunk, offset)
		if n > 0 {
			length := int64(n)
			if remoteSize-offset < length {
				length = remoteSize - offset
			}
			if _, err := w.Write(chunk[:length]); err != nil {
				return fmt.Errorf("failed to write local file %s: %w", localPath, err)
			}
			offset += length
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return &RemoteIOError{Op: "read", Path: remotePath, Err: readErr}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush local file %s: %w", localPath, err)
	}
	s.log.Debugf("downloaded %s -> %s (%d bytes)", remotePath, localPath, offset)
	return nil
}

// UploadFile copies localPath to remotePath in fixed-size chunks, creating
// missing remote directories first. The remote handle is closed on every
// exit path.
func (s *sftpSession) UploadFile(localPath, remotePath string, mode os.FileMode) error {
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer local.Close()

	if dir := gopath.Dir(remotePath); dir != "." && dir != "/" {
		if err := s.EnsureRemotePath(dir); err != nil {
			return err
		}
	}

	remote, err := s.CreateRemoteFile(remotePath, mode)
	if err != nil {
		return err
	}
	defer remote.Close()

	chunk := make([]byte, transferChunkSize)
	var offset int64
	for {
		n, readErr := local.Read(chunk)
		if n > 0 {
			if err := s.WriteChunk(remote, chunk[:n], offset); err != nil {
				return err
			}
			offset += int64(n)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read local file %s: %w", localPath, readErr)
		}
	}
	s.log.Debugf("uploaded %s -> %s (%d bytes)", localPath, remotePath, offset)
	return nil
}

func (s *sftpSession) AbsolutePath(path string) (string, error) {
	abs, err := s.backend.RealPath(path)
	if err != nil {
		return "", &RemoteIOError{Op: "canonicalize", Path: path, Err: err}
	}
	return abs, nil
}

func (s *sftpSession) Close() error {
	return s.backend.Close()
}
