package windows

import (
	"fmt"
	"strings"

	"github.com/Guliveer/assetprobe/internal/probe"
)

// Credentials is the resolved account of a Windows target.
type Credentials struct {
	// Username has any domain qualifier removed.
	Username string
	Password string
	Domain   string
	// Qualified is DOMAIN\user when a domain is known, the bare user
	// otherwise. WinRM and remote WMI expect this form.
	Qualified string
	LMHash    string
	NTHash    string
	Kerberos  bool
}

// ResolveCredentials splits DOMAIN\user and user@domain forms. An explicit
// Domain on the target takes precedence over the one embedded in the user
// name.
func ResolveCredentials(target probe.Target) (Credentials, error) {
	raw := strings.TrimSpace(target.Username)
	if raw == "" {
		return Credentials{}, fmt.Errorf("missing username for windows target %s", target.Host)
	}
	creds := Credentials{
		Username: raw,
		Password: target.Password,
		Domain:   strings.TrimSpace(target.Domain),
		Kerberos: target.Kerberos,
	}
	creds.LMHash, creds.NTHash = SplitHashes(target.Hashes)
	if creds.Password == "" && creds.NTHash == "" && !creds.Kerberos {
		return Credentials{}, fmt.Errorf("missing password for windows target %s", target.Host)
	}

	var embedded string
	switch {
	case strings.Contains(raw, `\`):
		parts := strings.SplitN(raw, `\`, 2)
		embedded, creds.Username = parts[0], parts[1]
	case strings.Contains(raw, "@"):
		parts := strings.SplitN(raw, "@", 2)
		creds.Username, embedded = parts[0], parts[1]
	}
	if creds.Domain == "" {
		creds.Domain = embedded
	}

	creds.Qualified = creds.Username
	if creds.Domain != "" {
		creds.Qualified = creds.Domain + `\` + creds.Username
	}
	return creds, nil
}

// SplitHashes splits "LM:NT" into its halves. A bare value is taken as the
// NT hash.
func SplitHashes(hashes string) (lm, nt string) {
	hashes = strings.TrimSpace(hashes)
	if hashes == "" {
		return "", ""
	}
	parts := strings.Split(hashes, ":")
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", parts[0]
}

// requirePassword rejects hash and Kerberos credentials, which neither
// backend can present.
func requirePassword(backend string, creds Credentials) error {
	switch {
	case creds.Kerberos:
		return &probe.BackendUnavailableError{Backend: backend, Reason: "kerberos authentication is not supported"}
	case creds.Password == "" && creds.NTHash != "":
		return &probe.BackendUnavailableError{Backend: backend, Reason: "pass-the-hash credentials are not supported"}
	}
	return nil
}
