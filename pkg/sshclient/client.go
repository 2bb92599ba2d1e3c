package sshclient

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/remotekit/sshkit/pkg/config"
	"github.com/remotekit/sshkit/pkg/logger"
)

func init() {
	Register("native", func(cfg *config.ClientConfig) Client {
		return NewNativeClient(cfg)
	})
}

// Dialer abstracts the raw transport dial so tests can inject failures.
type Dialer interface {
	Dial(network, addr string, timeout time.Duration) (net.Conn, error)
}

type netDialer struct{}

func (netDialer) Dial(network, addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, addr, timeout)
}

// NativeClient is the Client variant built on golang.org/x/crypto/ssh. It
// owns the transport connection exclusively: sessions opened from it become
// unusable the moment Close is called.
type NativeClient struct {
	cfg    *config.ClientConfig
	log    *logger.Logger
	dialer Dialer

	// HostKeyCallback verifies the server host key during the handshake.
	// Defaults to accepting any key; production callers pin with
	// ssh.FixedHostKey or a knownhosts callback.
	HostKeyCallback ssh.HostKeyCallback

	conn   net.Conn
	client *ssh.Client
	shell  *shellSession
	closed bool
}

// NewNativeClient returns an unconnected client for cfg.
func NewNativeClient(cfg *config.ClientConfig) *NativeClient {
	return &NativeClient{
		cfg:             cfg,
		log:             logger.Get(),
		dialer:          netDialer{},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
	}
}

// SetDialer replaces the transport dialer. Test hook.
func (c *NativeClient) SetDialer(d Dialer) { c.dialer = d }

// Connect establishes the raw transport to the configured host:port.
func (c *NativeClient) Connect() error {
	if c.closed {
		return &SessionStateError{Op: "connect", Reason: "client is closed"}
	}
	addr := c.cfg.Address()
	c.log.Debugf("dialing %s", addr)
	conn, err := c.dialer.Dial("tcp", addr, c.cfg.DialTimeout)
	if err != nil {
		return &ConnectionError{Addr: addr, Err: err}
	}
	c.conn = conn
	return nil
}

// Authenticate completes the SSH handshake with password authentication.
func (c *NativeClient) Authenticate(username, password string) error {
	return c.handshake(username, []ssh.AuthMethod{ssh.Password(password)})
}

// AuthenticateWithKey completes the SSH handshake with public-key
// authentication. Key-file read and parse errors are folded into the same
// *AuthenticationError kind as a server-side rejection; callers depend on
// that conflation, so do not split the kinds.
func (c *NativeClient) AuthenticateWithKey(username, keyfile, passphrase string) error {
	signer, err := loadSigner(keyfile, passphrase)
	if err != nil {
		return &AuthenticationError{User: username, Err: err}
	}
	return c.handshake(username, []ssh.AuthMethod{ssh.PublicKeys(signer)})
}

func loadSigner(keyfile, passphrase string) (ssh.Signer, error) {
	path, err := homedir.Expand(keyfile)
	if err != nil {
		return nil, fmt.Errorf("failed to expand key path: %w", err)
	}
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(keyBytes)
}

func (c *NativeClient) handshake(username string, methods []ssh.AuthMethod) error {
	if c.closed {
		return &SessionStateError{Op: "authenticate", Reason: "client is closed"}
	}
	if c.conn == nil {
		return &SessionStateError{Op: "authenticate", Reason: "not connected"}
	}

	clientConfig := &ssh.ClientConfig{
		User:            username,
		Auth:            methods,
		HostKeyCallback: c.HostKeyCallback,
		Timeout:         c.cfg.DialTimeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(c.conn, c.cfg.Address(), clientConfig)
	if err != nil {
		// The handshake consumed the transport; the caller must
		// Connect again before retrying.
		c.conn.Close()
		c.conn = nil
		return &AuthenticationError{User: username, Err: err}
	}

	c.client = ssh.NewClient(sshConn, chans, reqs)
	c.log.Debugf("authenticated %s@%s", username, c.cfg.Address())
	return nil
}

// OpenShell requests a PTY and starts an interactive shell.
func (c *NativeClient) OpenShell() error {
	if err := c.requireSession("open shell"); err != nil {
		return err
	}
	if c.shell != nil {
		return &SessionStateError{Op: "open shell", Reason: "shell already open"}
	}

	session, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open shell channel: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(c.cfg.TermType, c.cfg.TermHeight, c.cfg.TermWidth, modes); err != nil {
		session.Close()
		return fmt.Errorf("failed to request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return fmt.Errorf("failed to open shell stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return fmt.Errorf("failed to open shell stdout: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return fmt.Errorf("failed to start shell: %w", err)
	}

	dec, err := newDecoder(c.cfg.Encoding)
	if err != nil {
		session.Close()
		return err
	}

	c.shell = newShellSession(session, stdin, stdout, dec)
	c.log.Debugf("shell opened (%s %dx%d)", c.cfg.TermType, c.cfg.TermWidth, c.cfg.TermHeight)
	return nil
}

// Read returns all currently buffered shell output, non-blocking.
func (c *NativeClient) Read() (string, error) {
	if err := c.requireShell("read"); err != nil {
		return "", err
	}
	return c.shell.Read(), nil
}

// ReadByte returns one decoded shell output character if available,
// non-blocking.
func (c *NativeClient) ReadByte() (string, error) {
	if err := c.requireShell("read byte"); err != nil {
		return "", err
	}
	return c.shell.ReadByte(), nil
}

// Write sends text to the shell input and flushes it to the transport.
func (c *NativeClient) Write(text string) error {
	if err := c.requireShell("write"); err != nil {
		return err
	}
	return c.shell.Write(text)
}

// StartCommand opens a fresh exec channel and starts command on it without
// waiting for completion.
func (c *NativeClient) StartCommand(command string) (Command, error) {
	if err := c.requireSession("start command"); err != nil {
		return nil, err
	}

	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open exec channel: %w", err)
	}

	dec, err := newDecoder(c.cfg.Encoding)
	if err != nil {
		session.Close()
		return nil, err
	}

	cmd, err := startRemoteCommand(session, command, dec)
	if err != nil {
		session.Close()
		return nil, err
	}
	c.log.Debugf("started command: %s", command)
	return cmd, nil
}

// NewSFTP opens an SFTP session over the authenticated connection.
func (c *NativeClient) NewSFTP() (SFTP, error) {
	if err := c.requireSession("open sftp"); err != nil {
		return nil, err
	}
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, &RemoteIOError{Op: "open sftp session", Err: err}
	}
	return newSFTPSession(&sftpClientBackend{client: client}), nil
}

// Close releases the connection and everything derived from it. Calling
// Close twice is a caller error.
func (c *NativeClient) Close() error {
	if c.closed {
		return &SessionStateError{Op: "close", Reason: "client already closed"}
	}
	c.closed = true

	if c.shell != nil {
		c.shell.Close()
		c.shell = nil
	}
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		c.conn = nil
		return err
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *NativeClient) requireSession(op string) error {
	if c.closed {
		return &SessionStateError{Op: op, Reason: "client is closed"}
	}
	if c.client == nil {
		return &SessionStateError{Op: op, Reason: "not authenticated"}
	}
	return nil
}

func (c *NativeClient) requireShell(op string) error {
	if err := c.requireSession(op); err != nil {
		return err
	}
	if c.shell == nil {
		return &SessionStateError{Op: op, Reason: "no shell open"}
	}
	return nil
}
