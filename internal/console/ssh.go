package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Credentials resolve to a spawnable serial console session.
type Credentials struct {
	User       string
	Host       string
	Port       int
	PrivateKey []byte
}

// DialFunc opens a console session. Swappable in tests.
type DialFunc func(creds Credentials) (Session, error)

// Dial opens an SSH session against the serial console proxy and starts an
// interactive shell on a pty.
func Dial(creds Credentials) (Session, error) {
	signer, err := ssh.ParsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse console key: %w", err)
	}
	config := &ssh.ClientConfig{
		User: creds.User,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		// Console proxy endpoints rotate host keys per VM; there is no
		// stable key to pin.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}
	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", creds.Host, creds.Port), config)
	if err != nil {
		return nil, fmt.Errorf("dial serial console: %w", err)
	}
	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, err
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := sess.RequestPty("xterm", 40, 120, modes); err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}
	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}

	c := &sshSession{
		client: client,
		sess:   sess,
		stdin:  stdin,
		chunks: make(chan string, 16),
	}
	go func() {
		defer close(c.chunks)
		buf := make([]byte, 4096)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				c.chunks <- string(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()
	return c, nil
}

type sshSession struct {
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	chunks chan string

	mu         sync.Mutex
	pending    string // output read but not yet consumed by a match
	transcript strings.Builder
}

var _ Session = (*sshSession)(nil)

func (c *sshSession) Send(text string) error {
	_, err := c.stdin.Write([]byte(text))
	return err
}

func (c *sshSession) Expect(ctx context.Context, timeout time.Duration, patterns ...string) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if idx, ok := c.match(patterns); ok {
		return idx, nil
	}
	for {
		select {
		case chunk, open := <-c.chunks:
			if !open {
				return -1, fmt.Errorf("console stream closed")
			}
			c.mu.Lock()
			c.pending += chunk
			c.transcript.WriteString(chunk)
			c.mu.Unlock()
			if idx, ok := c.match(patterns); ok {
				return idx, nil
			}
		case <-timer.C:
			return -1, ErrExpectTimeout
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}
}

// match scans the unconsumed output for the patterns, consuming through the
// end of the first hit.
func (c *sshSession) match(patterns []string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range patterns {
		if at := strings.Index(c.pending, p); at >= 0 {
			c.pending = c.pending[at+len(p):]
			return i, true
		}
	}
	return -1, false
}

func (c *sshSession) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.String()
}

func (c *sshSession) Close() error {
	c.sess.Close()
	return c.client.Close()
}
