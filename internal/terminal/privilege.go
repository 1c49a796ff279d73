package terminal

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxSecretRecovery bounds the empty lines sent to get past repeated
// secret prompts after a rejected enable secret.
const maxSecretRecovery = 3

var secretPromptRE = regexp.MustCompile(`(?i)password:\s*$`)

func atSecretPrompt(text string) bool {
	return secretPromptRE.MatchString(lastLine(text))
}

func atSecretOrPrompt(text string) bool {
	return atSecretPrompt(text) || endsWithPrompt(text)
}

// Enable runs the privilege-escalation handshake. It returns true only when
// the device ends on a privileged ("#") prompt. A false result is not an
// error: the caller may continue unprivileged.
func (s *Session) Enable(secret string, timeout time.Duration) bool {
	if s.state == StateClosed {
		return false
	}
	s.PeekBuffered()

	if !s.send("enable") {
		return false
	}
	raw, _, err := s.readUntil(timeout, atSecretOrPrompt)
	if err != nil {
		s.logger.Warn("Enable handshake aborted", zap.Error(err))
		s.state = StateClosed
		return false
	}

	if atSecretPrompt(raw) {
		if !s.send(secret) {
			return false
		}
		raw, _, err = s.readUntil(timeout, atSecretOrPrompt)
		for attempt := 0; err == nil && attempt < maxSecretRecovery && atSecretPrompt(raw); attempt++ {
			s.logger.Debug("Enable secret re-prompted, backing out", zap.Int("attempt", attempt+1))
			if !s.send("") {
				return false
			}
			raw, _, err = s.readUntil(timeout, atSecretOrPrompt)
		}
		if err != nil {
			s.logger.Warn("Enable handshake aborted", zap.Error(err))
			s.state = StateClosed
			return false
		}
	}

	s.state = StateReady
	s.notePrompt(raw)
	privileged := strings.HasSuffix(lastLine(raw), "#")
	if !privileged {
		s.logger.Warn("Enable did not reach privileged prompt", zap.String("prompt", lastLine(raw)))
	}
	return privileged
}

// IsPrivileged inspects pending output, or the last prompt seen when
// nothing is pending, for a trailing "#".
func (s *Session) IsPrivileged() bool {
	if pending := s.PeekBuffered(); strings.TrimSpace(pending) != "" {
		return strings.HasSuffix(lastLine(pending), "#")
	}
	return strings.HasSuffix(s.lastPrompt, "#")
}

func (s *Session) send(line string) bool {
	s.state = StateSending
	if _, err := s.ch.Write([]byte(line + "\n")); err != nil {
		s.logger.Warn("Write to terminal failed", zap.Error(err))
		s.state = StateClosed
		return false
	}
	return true
}
