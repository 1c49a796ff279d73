package terminal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/Guliveer/assetprobe/internal/probe"
)

const (
	defaultSSHPort = 22
	ptyWidth       = 511
	ptyHeight      = 200
)

// DialConfig holds SSH connection parameters.
type DialConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	KeyFile  string
	Timeout  time.Duration
}

func (c DialConfig) address() string {
	port := c.Port
	if port <= 0 {
		port = defaultSSHPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c DialConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return probe.DefaultTimeout
}

// ClientConfig builds the SSH client configuration. Password and
// keyboard-interactive authentication are always offered; a key file adds
// public-key authentication. Host keys are not verified since probed
// devices are addressed from an inventory, not from known_hosts.
func (c DialConfig) ClientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if c.KeyFile != "" {
		signer, err := loadSigner(c.KeyFile, c.Password)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		password := c.Password
		auth = append(auth,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	return &ssh.ClientConfig{
		User:            c.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         c.timeout(),
	}, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) && passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing key file: %w", err)
	}
	return signer, nil
}

// DialClient opens an authenticated SSH connection. The context bounds the
// TCP dial and the handshake. Failures are reported as
// *probe.ConnectionError.
func DialClient(ctx context.Context, cfg DialConfig) (*ssh.Client, error) {
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, &probe.ConnectionError{Host: cfg.Host, Err: err}
	}

	addr := cfg.address()
	dialer := net.Dialer{Timeout: cfg.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &probe.ConnectionError{Host: cfg.Host, Err: err}
	}

	deadline := time.Now().Add(cfg.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, &probe.ConnectionError{Host: cfg.Host, Err: err}
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// Dial connects to an interactive device shell and returns a Session in
// StateReady, with the login banner consumed.
func Dial(ctx context.Context, cfg DialConfig, opts ...Option) (*Session, error) {
	client, err := DialClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ch, err := openShell(client)
	if err != nil {
		client.Close()
		return nil, &probe.ConnectionError{Host: cfg.Host, Err: err}
	}

	s := New(ch, append([]Option{WithHost(cfg.Host)}, opts...)...)
	if _, err := s.WaitForPrompt(cfg.timeout()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func openShell(client *ssh.Client) (Channel, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", ptyHeight, ptyWidth, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("requesting pty: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("starting shell: %w", err)
	}
	return NewStreamChannel(stdout, stdin, func() error {
		session.Close()
		return client.Close()
	}), nil
}
