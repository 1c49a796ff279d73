// OS info: host identity and operating system details for the local
// record. Uses gopsutil host.Info everywhere and /etc/os-release on Linux
// for the distribution name.
package collector

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/parser"
	"github.com/Guliveer/assetprobe/internal/probe"
)

const osReleasePath = "/etc/os-release"

func gatherOS(ctx context.Context, s *snapshot) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		s.fail("host info", err)
		return
	}
	s.host = info
	if info.OS == "linux" {
		if data, err := os.ReadFile(osReleasePath); err == nil {
			s.release = parser.ParseOSRelease(string(data))
		}
	}
}

func (s *snapshot) osInfo() *models.OSInfo {
	out := &models.OSInfo{}
	if s.host == nil {
		return out
	}
	h := s.host
	out.Hostname = h.Hostname
	out.KernelName = h.OS
	out.KernelRelease = h.KernelVersion
	out.Architecture = h.KernelArch
	if h.Uptime > 0 {
		out.Uptime = formatUptime(h.Uptime)
	}
	if h.BootTime > 0 {
		out.LastBoot = time.Unix(int64(h.BootTime), 0).UTC().Format(time.RFC3339)
	}

	switch {
	case h.OS == "linux":
		out.Family = firstNonEmpty(strings.ToLower(s.release["ID"]), probe.KindLinux)
		out.ID = s.release["ID"]
		out.Name = firstNonEmpty(s.release["PRETTY_NAME"], s.release["NAME"], h.Platform)
		out.Version = firstNonEmpty(s.release["VERSION"], s.release["VERSION_ID"], h.PlatformVersion)
		out.Distribution = h.Platform
	case h.OS == "windows":
		out.Family = probe.KindWindows
		out.Caption = h.Platform
		out.Version = h.PlatformVersion
		if idx := strings.Index(h.PlatformVersion, "Build "); idx >= 0 {
			out.Build = strings.TrimSpace(h.PlatformVersion[idx+len("Build "):])
		}
	case h.OS == "darwin":
		out.Family = "macos"
		out.Name = "macOS"
		out.Version = h.PlatformVersion
	case strings.HasSuffix(h.OS, "bsd"):
		out.Family = probe.KindBSD
		out.Distribution = firstNonEmpty(h.Platform, h.OS)
		out.Version = h.PlatformVersion
	default:
		out.Family = h.OS
		out.Name = h.Platform
		out.Version = h.PlatformVersion
	}
	return out
}
