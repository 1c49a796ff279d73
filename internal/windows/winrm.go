package windows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/masterzen/winrm"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

const (
	defaultHTTPPort         = 5985
	defaultHTTPSPort        = 5986
	defaultReadTimeout      = 30 * time.Second
	defaultOperationTimeout = 20 * time.Second
	envelopeSize            = 153600
)

// collectionScript gathers the same classes as the WMI backend and prints
// them as one JSON document. LastBootUpTime is converted back to the CIM
// datetime form so both backends hand Normalize the same text.
const collectionScript = `$ErrorActionPreference = 'Stop'
function Get-AppInventory([int]$Max) {
  if ($Max -le 0) { return @() }
  $paths = 'HKLM:\Software\Microsoft\Windows\CurrentVersion\Uninstall\*','HKLM:\Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall\*'
  $items = foreach ($p in $paths) { if (Test-Path $p) { Get-ItemProperty -Path $p | Where-Object { $_.DisplayName -and $_.DisplayName.Trim() -ne '' } | Select-Object DisplayName, DisplayVersion, Publisher, InstallDate } }
  if (-not $items) { return @() }
  $items | Sort-Object DisplayName -Unique | Select-Object -First $Max
}
$os = Get-CimInstance Win32_OperatingSystem | Select-Object Caption, Version, BuildNumber, CSName, OSArchitecture, @{n='LastBootUpTime';e={[Management.ManagementDateTimeConverter]::ToDmtfDateTime($_.LastBootUpTime)}}, TotalVisibleMemorySize, FreePhysicalMemory
$computer = Get-CimInstance Win32_ComputerSystem | Select-Object Name, Manufacturer, Model, TotalPhysicalMemory, NumberOfProcessors, NumberOfLogicalProcessors
$processors = Get-CimInstance Win32_Processor | Select-Object Name, NumberOfCores, NumberOfLogicalProcessors, MaxClockSpeed
$interfaces = Get-CimInstance Win32_NetworkAdapterConfiguration -Filter 'IPEnabled = TRUE' | Select-Object Description, MACAddress, IPAddress, IPSubnet, DefaultIPGateway, DHCPEnabled
$disks = Get-CimInstance Win32_LogicalDisk -Filter 'DriveType = 3' | Select-Object DeviceID, FileSystem, VolumeName, Size, FreeSpace
$applications = Get-AppInventory -Max {{APP_LIMIT}}
@{ os = $os; computer = $computer; processors = $processors; interfaces = $interfaces; disks = $disks; applications = $applications } | ConvertTo-Json -Depth 5 -Compress`

// scriptRunner executes a PowerShell script and returns its output streams
// and exit code.
type scriptRunner func(ctx context.Context, target probe.Target, creds Credentials, script string) (stdout, stderr string, exitCode int, err error)

// WinRMBackend runs the collection script over WS-Management.
type WinRMBackend struct {
	logger *zap.Logger
	run    scriptRunner
}

// NewWinRMBackend creates the WinRM backend.
func NewWinRMBackend(logger *zap.Logger) *WinRMBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WinRMBackend{logger: logger, run: runWinRM}
}

func (b *WinRMBackend) Name() string { return models.SourceWinRM }

// Available returns nil; the WinRM client is pure Go.
func (b *WinRMBackend) Available() error { return nil }

func (b *WinRMBackend) Collect(ctx context.Context, target probe.Target) (*Facts, error) {
	creds, err := ResolveCredentials(target)
	if err != nil {
		return nil, err
	}
	if err := requirePassword(b.Name(), creds); err != nil {
		return nil, err
	}

	limit := applicationLimit(target.Windows.CollectApplications, target.Windows.ApplicationsLimit)
	script := strings.ReplaceAll(collectionScript, "{{APP_LIMIT}}", strconv.Itoa(limit))

	log := probe.LoggerFrom(ctx, b.logger)
	start := time.Now()
	stdout, stderr, code, err := b.run(ctx, target, creds, script)
	if err != nil {
		return nil, &probe.ConnectionError{Host: target.Host, Err: err}
	}
	log.Debug("WinRM script finished",
		zap.String("host", target.Host),
		zap.Int("exit_code", code),
		zap.Duration("elapsed", time.Since(start)))

	if code != 0 {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return nil, fmt.Errorf("script failed: %s", msg)
		}
		return nil, fmt.Errorf("script returned status %d", code)
	}
	stdout = strings.TrimSpace(stdout)
	if stdout == "" {
		return nil, errors.New("script returned no data")
	}
	return DecodePayload([]byte(stdout), limit)
}

func runWinRM(ctx context.Context, target probe.Target, creds Credentials, script string) (string, string, int, error) {
	opts := target.Windows
	port := opts.Port
	if port == 0 {
		port = defaultHTTPPort
		if opts.UseSSL {
			port = defaultHTTPSPort
		}
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	opTimeout := opts.OperationTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}

	endpoint := winrm.NewEndpoint(target.Host, port, opts.UseSSL, !opts.ValidateCert, nil, nil, nil, readTimeout)
	params := winrm.NewParameters(fmt.Sprintf("PT%dS", int(opTimeout.Seconds())), "en-US", envelopeSize)
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case "", "ntlm":
		params.TransportDecorator = func() winrm.Transporter { return &winrm.ClientNTLM{} }
	case "basic", "plaintext":
	default:
		return "", "", 0, fmt.Errorf("unsupported winrm transport %q", opts.Transport)
	}

	client, err := winrm.NewClientWithParameters(endpoint, creds.Qualified, creds.Password, params)
	if err != nil {
		return "", "", 0, fmt.Errorf("creating winrm client: %w", err)
	}
	return client.RunWithContextWithString(ctx, winrm.Powershell(script), "")
}
