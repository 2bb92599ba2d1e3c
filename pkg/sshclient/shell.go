package sshclient

import (
	"bytes"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/text/encoding"
)

const shellReadBufferSize = 4096

// shellSession is a live PTY-backed shell. A background goroutine pumps the
// channel's output into a buffer so that Read and ReadByte can poll what has
// already arrived without ever blocking on the transport.
type shellSession struct {
	session *ssh.Session
	stdin   io.WriteCloser
	dec     *encoding.Decoder

	mu  sync.Mutex
	buf bytes.Buffer
}

func newShellSession(
	session *ssh.Session,
	stdin io.WriteCloser,
	stdout io.Reader,
	dec *encoding.Decoder,
) *shellSession {
	s := &shellSession{
		session: session,
		stdin:   stdin,
		dec:     dec,
	}
	go s.pump(stdout)
	return s
}

func (s *shellSession) pump(stdout io.Reader) {
	chunk := make([]byte, shellReadBufferSize)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf.Write(chunk[:n])
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Read drains and decodes everything buffered so far. Empty string when
// nothing has arrived.
func (s *shellSession) Read() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf.Len() == 0 {
		return ""
	}
	raw := make([]byte, s.buf.Len())
	_, _ = s.buf.Read(raw)
	return decodeText(s.dec, raw)
}

// ReadByte takes one buffered byte and decodes it. Empty string when nothing
// has arrived.
func (s *shellSession) ReadByte() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf.Len() == 0 {
		return ""
	}
	b, _ := s.buf.ReadByte()
	return decodeText(s.dec, []byte{b})
}

// Write sends text to the shell input. SSH channel writes go straight to the
// transport, so delivery is flushed by the time Write returns.
func (s *shellSession) Write(text string) error {
	_, err := s.stdin.Write([]byte(text))
	return err
}

func (s *shellSession) Close() error {
	return s.session.Close()
}
