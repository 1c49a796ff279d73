package probe

import (
	"fmt"
	"strings"
	"time"
)

// Target kinds understood by the collectors.
const (
	KindCisco   = "cisco"
	KindLinux   = "linux"
	KindBSD     = "bsd"
	KindUnix    = "unix"
	KindWindows = "windows"
	KindLocal   = "local"
)

// DefaultTimeout bounds dialing and each individual command.
const DefaultTimeout = 10 * time.Second

// Target describes one device to probe.
type Target struct {
	Kind        string
	Host        string
	Port        int
	Username    string
	Password    string
	KeyFile     string
	Timeout     time.Duration
	DisplayName string

	// EnableSecret is the privilege-escalation secret for network devices.
	EnableSecret string

	// Hashes holds "LM:NT" or a bare NT hash for Windows targets.
	Hashes   string
	Domain   string
	Kerberos bool

	Windows WindowsOptions
}

// WindowsOptions carries the backend-specific knobs of a Windows target.
type WindowsOptions struct {
	Namespace           string
	Transport           string
	UseSSL              bool
	Port                int
	ValidateCert        bool
	CollectApplications bool
	ApplicationsLimit   int
	ReadTimeout         time.Duration
	OperationTimeout    time.Duration
}

// NormalizedKind maps the aliases found in target inventories onto the
// canonical kind constants.
func (t Target) NormalizedKind() string {
	kind := strings.ToLower(strings.TrimSpace(t.Kind))
	switch {
	case kind == "":
		return KindLinux
	case kind == "win" || kind == "win32" || kind == KindWindows:
		return KindWindows
	case kind == "ios" || kind == "cisco_ios" || kind == "network" || kind == KindCisco:
		return KindCisco
	case strings.Contains(kind, "bsd"):
		return KindBSD
	}
	return kind
}

// CommandTimeout returns the per-command budget, falling back to
// DefaultTimeout.
func (t Target) CommandTimeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultTimeout
}

// Validate checks the fields every remote collector needs.
func (t Target) Validate() error {
	if t.NormalizedKind() == KindLocal {
		return nil
	}
	if t.Host == "" {
		return fmt.Errorf("missing host for %s target", t.NormalizedKind())
	}
	if t.Username == "" {
		return fmt.Errorf("missing username for %s target %s", t.NormalizedKind(), t.Host)
	}
	return nil
}
