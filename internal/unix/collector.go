// Package unix probes Linux, BSD and other Unix-like hosts by running a
// fixed chain of shell commands over SSH.
package unix

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/parser"
	"github.com/Guliveer/assetprobe/internal/probe"
	"github.com/Guliveer/assetprobe/internal/terminal"
)

// Collector gathers inventory from Unix-like hosts.
type Collector struct {
	logger  *zap.Logger
	connect Connector
}

// Option configures a Collector.
type Option func(*Collector)

// WithConnector replaces the SSH connector.
func WithConnector(conn Connector) Option {
	return func(c *Collector) {
		if conn != nil {
			c.connect = conn
		}
	}
}

// NewCollector creates a Unix collector.
func NewCollector(logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger, connect: DialSSH}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "unix" }

// Supports reports whether the collector handles the target kind.
func (c *Collector) Supports(kind string) bool {
	switch kind {
	case probe.KindLinux, probe.KindBSD, probe.KindUnix, "macos", "darwin", "solaris":
		return true
	}
	return false
}

// IsAvailable returns true; the SSH client is pure Go.
func (c *Collector) IsAvailable() bool { return true }

// Collect connects once and runs the command chain. Individual commands
// that fail or time out only leave their fields empty.
func (c *Collector) Collect(ctx context.Context, target probe.Target) (*models.AssetRecord, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	log := probe.LoggerFrom(ctx, c.logger).With(zap.String("host", target.Host))

	runner, err := c.connect(ctx, terminal.DialConfig{
		Host:     target.Host,
		Port:     target.Port,
		Username: target.Username,
		Password: target.Password,
		KeyFile:  target.KeyFile,
		Timeout:  target.CommandTimeout(),
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Debug("Closing SSH connection", zap.Error(err))
		}
	}()

	s := &shell{ctx: ctx, runner: runner, timeout: target.CommandTimeout(), log: log}
	record := &models.AssetRecord{ProbeSource: models.SourceSSH}

	record.OS = s.osInfo(hintFamily(target))
	if s.err != nil {
		return nil, s.err
	}
	record.Name = firstNonEmpty(record.OS.Hostname, target.DisplayName, target.Host)

	s.network(record)
	if s.err != nil {
		return nil, s.err
	}
	if len(record.IPs) == 0 {
		record.IPs = []string{target.Host}
	}

	record.Hardware = s.hardware(record.OS)
	record.Metrics = s.metrics(record.OS, record.Hardware)
	if s.err != nil {
		return nil, s.err
	}

	for _, w := range s.warnings {
		record.AddWarning(w)
	}
	record.Prune()
	log.Info("Unix probe complete",
		zap.String("name", record.Name),
		zap.String("family", familyOf(record)),
		zap.Int("warnings", len(record.Warnings)))
	return record, nil
}

// shell runs commands with a per-command deadline. The first connection
// error is kept in err and stops further commands.
type shell struct {
	ctx      context.Context
	runner   Runner
	timeout  time.Duration
	log      *zap.Logger
	warnings []string
	err      error
}

func (s *shell) run(command string) string {
	if s.err != nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	out, err := s.runner.Run(ctx, command)
	switch {
	case err == nil:
		return out
	case errors.Is(err, context.DeadlineExceeded) && s.ctx.Err() == nil:
		s.warnings = append(s.warnings, fmt.Sprintf("command timed out: %s", command))
		s.log.Warn("Command timed out", zap.String("command", command))
		return ""
	default:
		s.err = err
		return ""
	}
}

func hintFamily(target probe.Target) string {
	hint := strings.ToLower(strings.TrimSpace(target.Kind))
	switch {
	case hint == "":
		return probe.KindLinux
	case strings.Contains(hint, "bsd"):
		return probe.KindBSD
	}
	return hint
}

func (s *shell) osInfo(hint string) *models.OSInfo {
	info := &models.OSInfo{Family: hint}

	kernel := s.run("uname -s")
	kernelLower := strings.ToLower(kernel)
	if kernel != "" {
		info.KernelName = kernel
		switch {
		case strings.Contains(kernelLower, "bsd"):
			info.Family = probe.KindBSD
			info.Distribution = kernel
		case kernelLower == "linux" || kernelLower == "gnu/linux":
			info.Family = probe.KindLinux
		case kernelLower == "darwin" || kernelLower == "macos" || kernelLower == "mac os x":
			info.Family = "macos"
		default:
			info.Family = kernelLower
		}
	}
	info.KernelRelease = s.run("uname -r")
	info.Architecture = s.run("uname -m")
	info.Hostname = s.run("hostname")

	if release := s.run("cat /etc/os-release"); release != "" {
		fields := parser.ParseOSRelease(release)
		info.Name = firstNonEmpty(fields["PRETTY_NAME"], fields["NAME"])
		info.Version = firstNonEmpty(fields["VERSION"], fields["VERSION_ID"])
		info.ID = fields["ID"]
		if id := strings.ToLower(fields["ID"]); id != "" {
			if strings.Contains(id, "bsd") {
				info.Family = probe.KindBSD
				info.Distribution = firstNonEmpty(fields["NAME"], kernel, id)
			} else {
				info.Family = id
			}
		}
	} else if strings.Contains(kernelLower, "bsd") || strings.Contains(hint, "bsd") {
		info.Family = probe.KindBSD
		info.Version = s.run("sysctl -n kern.version")
		if name := s.run("sysctl -n kern.ostype"); name != "" {
			info.Name = name
			if info.Distribution == "" {
				info.Distribution = name
			}
		}
	}

	if strings.Contains(info.Family, "bsd") && info.Distribution == "" {
		info.Distribution = kernel
	}
	return info
}

func (s *shell) network(record *models.AssetRecord) {
	var found []parser.UnixInterface
	if ifaces, ok := parser.ParseIPAddrJSON(s.run("ip -j addr show")); ok {
		macs := parser.ParseIPLinkJSON(s.run("ip -j link show"))
		for _, iface := range ifaces {
			iface.MAC = macs[iface.Name]
			found = append(found, iface)
		}
	}
	if len(found) == 0 {
		out := s.run("ifconfig -a")
		if strings.TrimSpace(out) == "" {
			out = s.run("ifconfig")
		}
		found = parser.ParseIfconfig(out)
	}
	if len(found) == 0 {
		return
	}

	network := &models.NetworkInfo{}
	var primary string
	for _, raw := range found {
		iface := &models.Interface{
			Name:      raw.Name,
			Addresses: raw.Addresses,
			IsUp:      models.BoolPtr(raw.IsUp),
		}
		if raw.MAC != "" {
			iface.MAC = parser.NormalizeMAC(raw.MAC)
		}
		for _, addr := range raw.Addresses {
			bare := parser.BareAddress(addr)
			if ip := net.ParseIP(bare); ip != nil && ip.To4() != nil {
				iface.IPv4Addresses = models.AppendUnique(iface.IPv4Addresses, bare)
			} else if ip != nil {
				iface.IPv6Addresses = models.AppendUnique(iface.IPv6Addresses, bare)
			}
			record.IPs = models.AppendUnique(record.IPs, bare)
		}
		if primary == "" && iface.MAC != "" && !isLoopback(raw.Name) && iface.MAC != "00:00:00:00:00:00" {
			primary = iface.MAC
		}
		network.Interfaces = append(network.Interfaces, iface)
	}
	record.Network = network
	record.MAC = models.StringPtr(primary)
}

func isLoopback(name string) bool {
	return strings.HasPrefix(name, "lo")
}

func (s *shell) hardware(osInfo *models.OSInfo) *models.HardwareInfo {
	hw := &models.HardwareInfo{}

	cpu, ok := parser.ParseLscpuJSON(s.run("lscpu -J"))
	if !ok || cpu.Model == "" || cpu.Count == nil {
		text := parser.ParseLscpuText(s.run("lscpu"))
		cpu.Model = firstNonEmpty(cpu.Model, text.Model)
		cpu.Architecture = firstNonEmpty(cpu.Architecture, text.Architecture)
		if cpu.Count == nil {
			cpu.Count = text.Count
		}
	}
	if cpu.Count == nil {
		if n, err := strconv.Atoi(s.run("nproc")); err == nil {
			cpu.Count = models.IntPtr(n)
		}
	}
	hw.CPUModel = strings.TrimSpace(cpu.Model)
	hw.CPUCount = cpu.Count
	hw.Architecture = firstNonEmpty(cpu.Architecture, osInfo.Architecture)

	if isBSDLike(osInfo.Family) {
		if model := s.run("sysctl -n hw.model"); model != "" && hw.CPUModel == "" {
			hw.CPUModel = model
		}
		if n, err := strconv.Atoi(s.run("sysctl -n hw.ncpu")); err == nil {
			hw.CPUCount = models.IntPtr(n)
		}
		mem := s.run("sysctl -n hw.memsize")
		if mem == "" {
			mem = s.run("sysctl -n hw.physmem")
		}
		if n, ok := parser.ExtractInt(mem); ok && n > 0 {
			hw.MemoryBytes = models.Uint64Ptr(uint64(n))
		}
	}
	return hw
}

// metrics fills load, memory and disk usage. Linux memory totals are
// copied into hw when sysctl did not provide them.
func (s *shell) metrics(osInfo *models.OSInfo, hw *models.HardwareInfo) *models.Metrics {
	m := &models.Metrics{Memory: &models.MemoryUsage{}}

	if isBSDLike(osInfo.Family) {
		m.Memory.TotalBytes = hw.MemoryBytes
		total, free := parser.ParseSwapctl(s.run("swapctl -s -k"))
		m.Memory.SwapTotalBytes = kbToBytes(total)
		m.Memory.SwapFreeBytes = kbToBytes(free)
	} else {
		info := parser.ParseMeminfo(s.run("cat /proc/meminfo"))
		m.Memory.TotalBytes = kbToBytes(info.TotalKB)
		m.Memory.FreeBytes = kbToBytes(info.FreeKB)
		m.Memory.SwapTotalBytes = kbToBytes(info.SwapTotalKB)
		m.Memory.SwapFreeBytes = kbToBytes(info.SwapFreeKB)
		if hw.MemoryBytes == nil {
			hw.MemoryBytes = m.Memory.TotalBytes
		}
	}

	m.Disks = parser.ParseDF(s.run("df -P -k"))

	uptime := parser.ParseUptime(s.run("uptime"))
	m.CPULoad = uptime.Load
	osInfo.Uptime = uptime.Uptime
	return m
}

func isBSDLike(family string) bool {
	return strings.Contains(family, "bsd") || family == "macos"
}

func kbToBytes(kb *uint64) *uint64 {
	if kb == nil {
		return nil
	}
	return models.Uint64Ptr(*kb * 1024)
}

func familyOf(r *models.AssetRecord) string {
	if r.OS == nil {
		return ""
	}
	return r.OS.Family
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
