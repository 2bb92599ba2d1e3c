package sshclient

import (
	"net"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of the Client interface.
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Authenticate(username, password string) error {
	args := m.Called(username, password)
	return args.Error(0)
}

func (m *MockClient) AuthenticateWithKey(username, keyfile, passphrase string) error {
	args := m.Called(username, keyfile, passphrase)
	return args.Error(0)
}

func (m *MockClient) OpenShell() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Read() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClient) ReadByte() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClient) Write(text string) error {
	args := m.Called(text)
	return args.Error(0)
}

func (m *MockClient) StartCommand(command string) (Command, error) {
	args := m.Called(command)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Command), args.Error(1)
}

func (m *MockClient) NewSFTP() (SFTP, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SFTP), args.Error(1)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockCommand is a testify mock of the Command interface.
type MockCommand struct {
	mock.Mock
}

var _ Command = (*MockCommand)(nil)

func (m *MockCommand) ReadOutputs() (string, string, int, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.Int(2), args.Error(3)
}

// MockDialer is a testify mock of the Dialer interface.
type MockDialer struct {
	mock.Mock
}

var _ Dialer = (*MockDialer)(nil)

func (m *MockDialer) Dial(network, addr string, timeout time.Duration) (net.Conn, error) {
	args := m.Called(network, addr, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(net.Conn), args.Error(1)
}

// MockSFTP is a testify mock of the SFTP interface.
type MockSFTP struct {
	mock.Mock
}

var _ SFTP = (*MockSFTP)(nil)

func (m *MockSFTP) List(path string) ([]DirEntry, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DirEntry), args.Error(1)
}

func (m *MockSFTP) Permissions(entry interface{}) (os.FileMode, error) {
	args := m.Called(entry)
	return args.Get(0).(os.FileMode), args.Error(1)
}

func (m *MockSFTP) EnsureRemotePath(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSFTP) CreateRemoteFile(dest string, mode os.FileMode) (RemoteFile, error) {
	args := m.Called(dest, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(RemoteFile), args.Error(1)
}

func (m *MockSFTP) WriteChunk(f RemoteFile, data []byte, offset int64) error {
	args := m.Called(f, data, offset)
	return args.Error(0)
}

func (m *MockSFTP) CloseRemoteFile(f RemoteFile) error {
	args := m.Called(f)
	return args.Error(0)
}

func (m *MockSFTP) DownloadFile(remotePath, localPath string) error {
	args := m.Called(remotePath, localPath)
	return args.Error(0)
}

func (m *MockSFTP) UploadFile(localPath, remotePath string, mode os.FileMode) error {
	args := m.Called(localPath, remotePath, mode)
	return args.Error(0)
}

func (m *MockSFTP) AbsolutePath(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockSFTP) Close() error {
	args := m.Called()
	return args.Error(0)
}
