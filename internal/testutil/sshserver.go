package testutil

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/remotekit/sshkit/internal/testdata"
)

// ExecResult scripts the outcome of one exec request on the test server.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// OmitExitStatus closes the channel without reporting a status, the
	// way a killed remote process does.
	OmitExitStatus bool
}

// SSHServer is an in-process SSH server for tests. It answers password and
// public-key auth for a single user, runs scripted exec requests, echoes
// shell input back on PTY sessions, and serves the local filesystem over
// the SFTP subsystem.
type SSHServer struct {
	user     string
	password string

	listener net.Listener
	config   *ssh.ServerConfig
	hostKey  ssh.Signer

	mu      sync.Mutex
	running bool
	scripts map[string]ExecResult
}

// NewSSHServer configures a server accepting the given credentials and any
// public key presented for that user. Call Start before connecting.
func NewSSHServer(user, password string) (*SSHServer, error) {
	hostKey, err := ssh.ParsePrivateKey([]byte(testdata.TestServerHostKeyMaterial))
	if err != nil {
		return nil, fmt.Errorf("failed to parse test host key: %w", err)
	}

	s := &SSHServer{
		user:     user,
		password: password,
		hostKey:  hostKey,
		scripts:  make(map[string]ExecResult),
	}

	s.config = &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == s.user && string(pass) == s.password {
				return nil, nil
			}
			return nil, fmt.Errorf("authentication failed for %q", c.User())
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if c.User() == s.user {
				return nil, nil
			}
			return nil, fmt.Errorf("public key rejected for %q", c.User())
		},
	}
	s.config.AddHostKey(hostKey)
	return s, nil
}

// Script registers the result returned when command is executed.
func (s *SSHServer) Script(command string, result ExecResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[command] = result
}

// HostPublicKey returns the server host key for pinning with
// ssh.FixedHostKey.
func (s *SSHServer) HostPublicKey() ssh.PublicKey {
	return s.hostKey.PublicKey()
}

// Start listens on an ephemeral localhost port and serves until Stop.
func (s *SSHServer) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	go s.acceptLoop()
	return nil
}

// Stop shuts the listener down.
func (s *SSHServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.listener.Close()
}

// Host returns the listen host.
func (s *SSHServer) Host() string {
	return "127.0.0.1"
}

// Port returns the listen port.
func (s *SSHServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *SSHServer) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SSHServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isRunning() {
				return
			}
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *SSHServer) handleConn(conn net.Conn) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *SSHServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	for req := range requests {
		switch req.Type {
		case "pty-req":
			req.Reply(true, nil)

		case "shell":
			req.Reply(true, nil)
			// Loop the shell: everything written comes straight back.
			io.Copy(channel, channel)
			return

		case "exec":
			command := string(req.Payload[4:])
			req.Reply(true, nil)
			go io.Copy(io.Discard, channel)
			s.runExec(channel, command)
			return

		case "subsystem":
			if string(req.Payload[4:]) == "sftp" {
				req.Reply(true, nil)
				server, err := sftp.NewServer(channel)
				if err != nil {
					return
				}
				if err := server.Serve(); err != io.EOF { //nolint:errorlint
					_ = err
				}
				return
			}
			req.Reply(false, nil)

		default:
			req.Reply(false, nil)
		}
	}
}

func (s *SSHServer) runExec(channel ssh.Channel, command string) {
	s.mu.Lock()
	result, scripted := s.scripts[command]
	s.mu.Unlock()

	if !scripted {
		// Enough of a shell to make `echo hi` behave.
		if rest, ok := strings.CutPrefix(command, "echo "); ok {
			result = ExecResult{Stdout: rest + "\n"}
		} else {
			result = ExecResult{
				Stderr:   fmt.Sprintf("command not found: %s\n", command),
				ExitCode: 127,
			}
		}
	}

	if result.Stdout != "" {
		channel.Write([]byte(result.Stdout))
	}
	if result.Stderr != "" {
		channel.Stderr().Write([]byte(result.Stderr))
	}

	if !result.OmitExitStatus {
		status := make([]byte, 4)
		binary.BigEndian.PutUint32(status, uint32(result.ExitCode))
		channel.SendRequest("exit-status", false, status)
	}
}
