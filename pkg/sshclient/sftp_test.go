package sshclient

import (
	"errors"
	"io"
	"os"
	gopath "path"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remotekit/sshkit/pkg/config"
)

type fakeFileInfo struct {
	name string
	size int64
	mode os.FileMode
	dir  bool
	sys  interface{}
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() os.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() interface{}   { return f.sys }

type fakeRemoteFile struct {
	data       []byte
	readErr    error
	closeCalls int
}

func (f *fakeRemoteFile) ReadAt(p []byte, off int64) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if off+int64(n) >= int64(len(f.data)) {
		return n, io.EOF
	}
	return n, nil
}

func (f *fakeRemoteFile) WriteAt(p []byte, off int64) (int, error) {
	if end := off + int64(len(p)); int64(len(f.data)) < end {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[off:], p)
	return len(p), nil
}

func (f *fakeRemoteFile) Close() error {
	f.closeCalls++
	return nil
}

type fakeBackend struct {
	cwd      string
	dirs     map[string]bool
	files    map[string]*fakeRemoteFile
	modes    map[string]os.FileMode
	listing  map[string][]os.FileInfo
	chmodErr error

	mkdirs []string
	closed bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		cwd:     "/home/deploy",
		dirs:    map[string]bool{"/": true, "/home": true, "/home/deploy": true},
		files:   map[string]*fakeRemoteFile{},
		modes:   map[string]os.FileMode{},
		listing: map[string][]os.FileInfo{},
	}
}

func (b *fakeBackend) ReadDir(path string) ([]os.FileInfo, error) {
	infos, ok := b.listing[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return infos, nil
}

func (b *fakeBackend) Stat(path string) (os.FileInfo, error) {
	if b.dirs[path] {
		return fakeFileInfo{name: gopath.Base(path), mode: os.ModeDir | 0o755, dir: true}, nil
	}
	if f, ok := b.files[path]; ok {
		return fakeFileInfo{name: gopath.Base(path), size: int64(len(f.data)), mode: b.modes[path]}, nil
	}
	return nil, os.ErrNotExist
}

func (b *fakeBackend) Mkdir(path string) error {
	b.mkdirs = append(b.mkdirs, path)
	b.dirs[path] = true
	return nil
}

func (b *fakeBackend) Chmod(path string, mode os.FileMode) error {
	if b.chmodErr != nil {
		return b.chmodErr
	}
	b.modes[path] = mode
	return nil
}

func (b *fakeBackend) OpenRead(path string) (RemoteFile, error) {
	f, ok := b.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return f, nil
}

func (b *fakeBackend) OpenWrite(path string) (RemoteFile, error) {
	f := &fakeRemoteFile{}
	b.files[path] = f
	return f, nil
}

func (b *fakeBackend) RealPath(path string) (string, error) {
	if path == "." {
		return b.cwd, nil
	}
	if gopath.IsAbs(path) {
		return gopath.Clean(path), nil
	}
	return gopath.Join(b.cwd, path), nil
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func TestListEntries(t *testing.T) {
	backend := newFakeBackend()
	backend.listing["/srv"] = []os.FileInfo{
		fakeFileInfo{name: "app.conf", size: 120, mode: 0o644},
		fakeFileInfo{name: "logs", mode: os.ModeDir | 0o755, dir: true},
	}
	session := newSFTPSession(backend)

	entries, err := session.List("/srv")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "app.conf", entries[0].Name)
	assert.Equal(t, "logs", entries[1].Name)
	assert.Equal(t, int64(120), entries[0].Info.Size())
}

func TestListMissingDirectory(t *testing.T) {
	session := newSFTPSession(newFakeBackend())
	_, err := session.List("/nope")
	var ioErr *RemoteIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "/nope", ioErr.Path)
}

func TestPermissionsBothEntryShapes(t *testing.T) {
	session := newSFTPSession(newFakeBackend())

	// A listing entry carries the bits nested in backend attributes, a
	// stat result carries them at top level. Same file, same answer.
	listed := DirEntry{
		Name: "script.sh",
		Info: fakeFileInfo{name: "script.sh", mode: 0o777, sys: &sftp.FileStat{Mode: 0o754}},
	}
	statted := fakeFileInfo{name: "script.sh", mode: 0o754}

	fromListing, err := session.Permissions(listed)
	require.NoError(t, err)
	fromStat, err := session.Permissions(os.FileInfo(statted))
	require.NoError(t, err)

	assert.Equal(t, os.FileMode(0o754), fromListing)
	assert.Equal(t, fromListing, fromStat)
}

func TestPermissionsRawStat(t *testing.T) {
	session := newSFTPSession(newFakeBackend())
	perm, err := session.Permissions(&sftp.FileStat{Mode: 0o640})
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), perm)
}

func TestPermissionsUnsupportedType(t *testing.T) {
	session := newSFTPSession(newFakeBackend())
	_, err := session.Permissions(42)
	assert.Error(t, err)
}

func TestEnsureRemotePathAbsolute(t *testing.T) {
	backend := newFakeBackend()
	session := newSFTPSession(backend)

	require.NoError(t, session.EnsureRemotePath("/srv/app/releases"))
	assert.Equal(t, []string{"/srv", "/srv/app", "/srv/app/releases"}, backend.mkdirs)
	assert.Equal(t, config.DefaultDirMode, backend.modes["/srv/app/releases"])
}

func TestEnsureRemotePathIdempotent(t *testing.T) {
	backend := newFakeBackend()
	session := newSFTPSession(backend)

	require.NoError(t, session.EnsureRemotePath("/srv/app"))
	created := len(backend.mkdirs)
	require.NoError(t, session.EnsureRemotePath("/srv/app"))
	assert.Equal(t, created, len(backend.mkdirs))
}

func TestEnsureRemotePathRelative(t *testing.T) {
	backend := newFakeBackend()
	session := newSFTPSession(backend)

	require.NoError(t, session.EnsureRemotePath("uploads/images"))
	assert.Equal(t, []string{"/home/deploy/uploads", "/home/deploy/uploads/images"}, backend.mkdirs)
}

func TestCreateRemoteFileSwallowsChmodFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.chmodErr = errors.New("server rejects chmod")
	session := newSFTPSession(backend)

	f, err := session.CreateRemoteFile("/srv/out.txt", 0o644)
	require.NoError(t, err)
	require.NotNil(t, f)

	// The handle stays usable despite the failed permission change.
	require.NoError(t, session.WriteChunk(f, []byte("payload"), 0))
	require.NoError(t, session.CloseRemoteFile(f))
	assert.Equal(t, []byte("payload"), backend.files["/srv/out.txt"].data)
}

func TestDownloadFileChunkBoundaries(t *testing.T) {
	sizes := []int{0, 1, transferChunkSize - 1, transferChunkSize, 2*transferChunkSize + 8}
	for _, size := range sizes {
		content := make([]byte, size)
		for i := range content {
			content[i] = byte(i % 251)
		}

		backend := newFakeBackend()
		backend.files["/data/blob"] = &fakeRemoteFile{data: content}
		session := newSFTPSession(backend)

		local := filepath.Join(t.TempDir(), "blob")
		require.NoError(t, session.DownloadFile("/data/blob", local))

		got, err := os.ReadFile(local)
		require.NoError(t, err)
		assert.Equal(t, content, got, "size %d", size)
		assert.Equal(t, 1, backend.files["/data/blob"].closeCalls)
	}
}

func TestDownloadFileMissingRemote(t *testing.T) {
	session := newSFTPSession(newFakeBackend())
	var ioErr *RemoteIOError
	err := session.DownloadFile("/data/missing", filepath.Join(t.TempDir(), "out"))
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "stat", ioErr.Op)
}

func TestDownloadFileClosesRemoteOnReadFailure(t *testing.T) {
	backend := newFakeBackend()
	remote := &fakeRemoteFile{data: []byte("short"), readErr: errors.New("connection reset")}
	backend.files["/data/blob"] = remote
	session := newSFTPSession(backend)

	err := session.DownloadFile("/data/blob", filepath.Join(t.TempDir(), "out"))
	var ioErr *RemoteIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, 1, remote.closeCalls)
}

func TestUploadFileRoundTrip(t *testing.T) {
	content := make([]byte, 2*transferChunkSize+8)
	for i := range content {
		content[i] = byte(i % 253)
	}
	local := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(local, content, 0o600))

	backend := newFakeBackend()
	session := newSFTPSession(backend)

	require.NoError(t, session.UploadFile(local, "/srv/app/payload.bin", 0o640))

	// Missing parents were created before the file itself.
	assert.Contains(t, backend.mkdirs, "/srv")
	assert.Contains(t, backend.mkdirs, "/srv/app")

	remote := backend.files["/srv/app/payload.bin"]
	require.NotNil(t, remote)
	assert.Equal(t, content, remote.data)
	assert.Equal(t, os.FileMode(0o640), backend.modes["/srv/app/payload.bin"])
	assert.Equal(t, 1, remote.closeCalls)
}

func TestUploadFileMissingLocal(t *testing.T) {
	session := newSFTPSession(newFakeBackend())
	err := session.UploadFile(filepath.Join(t.TempDir(), "nope"), "/srv/out", 0o644)
	assert.Error(t, err)
}

func TestAbsolutePath(t *testing.T) {
	session := newSFTPSession(newFakeBackend())

	abs, err := session.AbsolutePath(".")
	require.NoError(t, err)
	assert.Equal(t, "/home/deploy", abs)

	abs, err = session.AbsolutePath("uploads")
	require.NoError(t, err)
	assert.Equal(t, "/home/deploy/uploads", abs)
}

func TestSessionCloseReleasesBackend(t *testing.T) {
	backend := newFakeBackend()
	session := newSFTPSession(backend)
	require.NoError(t, session.Close())
	assert.True(t, backend.closed)
}
