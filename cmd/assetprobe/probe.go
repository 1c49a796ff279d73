package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guliveer/assetprobe/internal/config"
	"github.com/Guliveer/assetprobe/internal/probe"
)

// probeFlags holds the ad-hoc target given on the command line.
type probeFlags struct {
	target    string
	entry     config.TargetConfig
	timeout   time.Duration
	pretty    bool
	collectNo bool
}

func newProbeCmd(a *app) *cobra.Command {
	f := &probeFlags{}

	cmd := &cobra.Command{
		Use:   "probe [host]",
		Short: "Probe one device and print its asset record as JSON",
		Long: `Probe one device, either a configured target selected with --target or an
ad-hoc one described by flags, and print the resulting asset record.`,
		Example: `  assetprobe probe --target core-sw
  assetprobe probe 10.0.0.1 --type cisco --user admin --password-env SW_PASS --enable-secret-env SW_ENABLE
  assetprobe probe dc1.corp.local --type windows --user 'CORP\probe' --password-env DC_PASS --transport ntlm`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.entry.Host = args[0]
			}
			target, err := f.resolve(a.cfg)
			if err != nil {
				return err
			}

			record, err := newRegistry(a.logger).Probe(cmd.Context(), target)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record, f.pretty)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.target, "target", "t", "", "name of a target from the config file")
	fl.StringVar(&f.entry.Type, "type", "", "device kind: cisco, linux, bsd, unix, windows, local (default linux)")
	fl.IntVarP(&f.entry.Port, "port", "p", 0, "port (default depends on the kind)")
	fl.StringVarP(&f.entry.Username, "user", "u", "", "login user")
	fl.StringVar(&f.entry.Password, "password", "", "login password")
	fl.StringVar(&f.entry.PasswordEnv, "password-env", "", "environment variable holding the login password")
	fl.StringVarP(&f.entry.KeyFile, "key-file", "i", "", "SSH private key file")
	fl.StringVar(&f.entry.EnableSecret, "enable-secret", "", "Cisco enable secret")
	fl.StringVar(&f.entry.EnableSecretEnv, "enable-secret-env", "", "environment variable holding the enable secret")
	fl.StringVar(&f.entry.Domain, "domain", "", "Windows domain")
	fl.StringVar(&f.entry.Hashes, "hashes", "", "Windows LM:NT hashes")
	fl.BoolVar(&f.entry.Kerberos, "kerberos", false, "use Kerberos for Windows")
	fl.StringVar(&f.entry.Windows.Namespace, "namespace", "", `WMI namespace (default root\cimv2)`)
	fl.StringVar(&f.entry.Windows.Transport, "transport", "", "WinRM transport: ntlm, basic")
	fl.BoolVar(&f.entry.Windows.UseSSL, "ssl", false, "use HTTPS for WinRM")
	fl.BoolVar(&f.entry.Windows.ValidateCert, "validate-cert", false, "verify the WinRM server certificate")
	fl.BoolVar(&f.collectNo, "no-applications", false, "skip the Windows application inventory")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-command timeout (default from config)")
	fl.BoolVar(&f.pretty, "pretty", true, "indent JSON output")

	return cmd
}

// resolve builds the target from --target or from the ad-hoc flags. Flags
// given alongside --target override the configured values for host and
// credentials.
func (f *probeFlags) resolve(cfg *config.Config) (probe.Target, error) {
	entry := f.entry
	if f.target != "" {
		named, ok := cfg.FindTarget(f.target)
		if !ok {
			return probe.Target{}, fmt.Errorf("target %q not found in configuration", f.target)
		}
		entry = overlay(named, f.entry)
	}
	if f.timeout > 0 {
		entry.Timeout = config.Duration{Duration: f.timeout}
	}
	if f.collectNo {
		off := false
		entry.Windows.CollectApplications = &off
	}

	target := entry.Target(cfg.Defaults)
	if err := target.Validate(); err != nil {
		return probe.Target{}, err
	}
	return target, nil
}

// overlay copies the non-empty flag values over a configured target.
func overlay(base, flags config.TargetConfig) config.TargetConfig {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Type, flags.Type)
	set(&base.Host, flags.Host)
	set(&base.Username, flags.Username)
	set(&base.Password, flags.Password)
	set(&base.PasswordEnv, flags.PasswordEnv)
	set(&base.KeyFile, flags.KeyFile)
	set(&base.EnableSecret, flags.EnableSecret)
	set(&base.EnableSecretEnv, flags.EnableSecretEnv)
	set(&base.Domain, flags.Domain)
	set(&base.Hashes, flags.Hashes)
	set(&base.Windows.Namespace, flags.Windows.Namespace)
	set(&base.Windows.Transport, flags.Windows.Transport)
	if flags.Port != 0 {
		base.Port = flags.Port
	}
	base.Kerberos = base.Kerberos || flags.Kerberos
	base.Windows.UseSSL = base.Windows.UseSSL || flags.Windows.UseSSL
	base.Windows.ValidateCert = base.Windows.ValidateCert || flags.Windows.ValidateCert
	return base
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
