// Package terminal drives interactive prompt-based shells such as the Cisco
// IOS CLI. A Session sends one command at a time and reads until the device
// prompt reappears or the per-command deadline expires.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/probe"
)

// State is the position of a Session in its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateAwaitingPrompt
	StateReady
	StateSending
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingPrompt:
		return "awaiting-prompt"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultDrainWindow  = 100 * time.Millisecond
)

var (
	promptRE         = regexp.MustCompile(`[>#]\s*$`)
	trailingPromptRE = regexp.MustCompile(`^\S*[>#]\s*$`)
)

// Option configures a Session.
type Option func(*Session)

// WithPollInterval bounds each individual read while waiting for a prompt.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithDrainWindow sets how long the single post-prompt drain pass waits for
// trailing output.
func WithDrainWindow(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.drainWindow = d
		}
	}
}

// WithLogger sets the logger used for timeouts and state changes.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHost records the remote host for error reporting.
func WithHost(host string) Option {
	return func(s *Session) { s.host = host }
}

// Session is an interactive shell bound to one device. It is not safe for
// concurrent use; a probe owns its session exclusively.
type Session struct {
	ch     Channel
	host   string
	logger *zap.Logger

	pollInterval time.Duration
	drainWindow  time.Duration

	state      State
	lastPrompt string
	timeouts   []string

	closeOnce sync.Once
}

// New wraps an already-open channel. The session starts in
// StateAwaitingPrompt; call WaitForPrompt to consume the login banner.
func New(ch Channel, opts ...Option) *Session {
	s := &Session{
		ch:           ch,
		logger:       zap.NewNop(),
		pollInterval: defaultPollInterval,
		drainWindow:  defaultDrainWindow,
		state:        StateAwaitingPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Timeouts lists the commands whose deadline expired before a prompt was
// seen, in issue order.
func (s *Session) Timeouts() []string {
	out := make([]string, len(s.timeouts))
	copy(out, s.timeouts)
	return out
}

// LastPrompt returns the most recent prompt line observed.
func (s *Session) LastPrompt() string { return s.lastPrompt }

// WaitForPrompt reads and discards the banner until the first prompt or the
// timeout, then moves the session to StateReady. A silent device is not an
// error; the first command will simply run against whatever comes next.
func (s *Session) WaitForPrompt(timeout time.Duration) (string, error) {
	if s.state == StateClosed {
		return "", s.connErr(ErrClosed)
	}
	s.state = StateAwaitingPrompt
	raw, timedOut, err := s.readUntil(timeout, endsWithPrompt)
	if err != nil {
		s.state = StateClosed
		return raw, s.connErr(fmt.Errorf("waiting for initial prompt: %w", err))
	}
	if timedOut {
		s.logger.Debug("No initial prompt before timeout", zap.Duration("timeout", timeout))
	}
	s.notePrompt(raw)
	s.state = StateReady
	return raw, nil
}

// RunCommand sends text and returns its cleaned output: carriage returns
// removed, the echoed command and trailing prompt stripped. When the
// timeout expires the partial output is returned without error and the
// command is recorded in Timeouts. Output starting with "%" is a device
// error and yields a *probe.CommandError unless allowFailure is set.
func (s *Session) RunCommand(text string, timeout time.Duration, allowFailure bool) (string, error) {
	if s.state == StateClosed {
		return "", s.connErr(ErrClosed)
	}

	s.state = StateSending
	if _, err := s.ch.Write([]byte(text + "\n")); err != nil {
		s.state = StateClosed
		return "", s.connErr(fmt.Errorf("sending %q: %w", text, err))
	}

	raw, timedOut, err := s.readUntil(timeout, endsWithPrompt)
	if err != nil {
		s.state = StateClosed
		return "", s.connErr(fmt.Errorf("reading output of %q: %w", text, err))
	}
	s.state = StateReady

	if timedOut {
		s.timeouts = append(s.timeouts, text)
		s.logger.Warn("Command timed out, using partial output",
			zap.String("command", text),
			zap.Duration("timeout", timeout),
			zap.Int("bytes", len(raw)))
	}
	s.notePrompt(raw)

	out := stripCommandOutput(raw, text)
	if !allowFailure && strings.HasPrefix(strings.TrimSpace(out), "%") {
		return out, &probe.CommandError{Command: text, Output: out}
	}
	return out, nil
}

// PeekBuffered returns output that has already arrived without waiting.
func (s *Session) PeekBuffered() string {
	if s.state == StateClosed {
		return ""
	}
	data, err := s.ch.Recv(0)
	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Debug("Peek failed", zap.Error(err))
	}
	text := strings.ReplaceAll(string(data), "\r", "")
	s.notePrompt(text)
	return text
}

// Close releases the channel. It is idempotent and never fails; transport
// close errors are only logged.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state = StateClosed
		if err := s.ch.Close(); err != nil {
			s.logger.Debug("Closing terminal channel", zap.Error(err))
		}
	})
}

// readUntil polls the channel in pollInterval slices until match accepts
// the accumulated text or the deadline passes. After a match it performs
// exactly one extra drain pass to pick up trailing bytes.
func (s *Session) readUntil(timeout time.Duration, match func(string) bool) (string, bool, error) {
	var buf strings.Builder
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf.String(), true, nil
		}
		wait := s.pollInterval
		if remaining < wait {
			wait = remaining
		}
		chunk, err := s.ch.Recv(wait)
		buf.Write(chunk)
		if err != nil {
			return buf.String(), false, err
		}
		if len(chunk) == 0 || !match(buf.String()) {
			continue
		}

		prev := s.state
		s.state = StateDraining
		extra, err := s.ch.Recv(s.drainWindow)
		buf.Write(extra)
		s.state = prev
		if err != nil && !errors.Is(err, io.EOF) {
			return buf.String(), false, err
		}
		return buf.String(), false, nil
	}
}

// notePrompt remembers the last line of text when it is a prompt.
func (s *Session) notePrompt(text string) {
	if line := lastLine(text); promptRE.MatchString(line) {
		s.lastPrompt = line
	}
}

func (s *Session) connErr(err error) error {
	return &probe.ConnectionError{Host: s.host, Err: err}
}

// endsWithPrompt reports whether the last non-blank line is a prompt.
func endsWithPrompt(text string) bool {
	return promptRE.MatchString(lastLine(text))
}

func lastLine(text string) string {
	all := strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
	for i := len(all) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(all[i]); line != "" {
			return line
		}
	}
	return ""
}

// stripCommandOutput removes carriage returns, the echoed command line and
// a trailing prompt line.
func stripCommandOutput(raw, command string) string {
	all := strings.Split(strings.ReplaceAll(raw, "\r", ""), "\n")
	command = strings.TrimSpace(command)

	start := 0
	for start < len(all) && strings.TrimSpace(all[start]) == "" {
		start++
	}
	if start < len(all) && command != "" {
		if first := strings.TrimSpace(all[start]); first == command || isPromptEcho(first, command) {
			start++
		}
	}

	end := len(all)
	for end > start && strings.TrimSpace(all[end-1]) == "" {
		end--
	}
	if end > start && trailingPromptRE.MatchString(strings.TrimSpace(all[end-1])) {
		end--
	}
	return strings.TrimRight(strings.Join(all[start:end], "\n"), " \t\n")
}

// isPromptEcho matches an echo such as "router#show version".
func isPromptEcho(line, command string) bool {
	if !strings.HasSuffix(line, command) {
		return false
	}
	return trailingPromptRE.MatchString(strings.TrimSpace(strings.TrimSuffix(line, command)))
}
