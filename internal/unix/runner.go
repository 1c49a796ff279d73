package unix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/Guliveer/assetprobe/internal/probe"
	"github.com/Guliveer/assetprobe/internal/terminal"
)

// Runner executes non-interactive commands on a remote host.
type Runner interface {
	// Run returns the trimmed standard output of command. A non-zero exit
	// status is not an error; transport failures are.
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

// Connector opens a Runner for a host.
type Connector func(ctx context.Context, cfg terminal.DialConfig) (Runner, error)

// SSHRunner runs each command in its own SSH session over one connection.
type SSHRunner struct {
	host   string
	client *ssh.Client
}

// DialSSH is the default Connector.
func DialSSH(ctx context.Context, cfg terminal.DialConfig) (Runner, error) {
	client, err := terminal.DialClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &SSHRunner{host: cfg.Host, client: client}, nil
}

func (r *SSHRunner) Run(ctx context.Context, command string) (string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", &probe.ConnectionError{Host: r.host, Err: fmt.Errorf("opening session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		return "", ctx.Err()
	}

	var exitErr *ssh.ExitError
	var missing *ssh.ExitMissingError
	if err != nil && !errors.As(err, &exitErr) && !errors.As(err, &missing) {
		return "", &probe.ConnectionError{Host: r.host, Err: fmt.Errorf("running %q: %w", command, err)}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *SSHRunner) Close() error {
	return r.client.Close()
}
