package windows

import (
	"fmt"
	"net"
	"strings"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/parser"
)

// Normalize converts backend facts into the canonical record. It is the
// only place Windows facts are shaped, which keeps the WMI and WinRM
// records identical apart from ProbeSource.
func Normalize(host string, facts *Facts) *models.AssetRecord {
	if facts == nil {
		facts = &Facts{}
	}
	record := &models.AssetRecord{}

	hostname := firstNonEmpty(clean(facts.OS.CSName), clean(facts.Computer.Name))
	record.Name = firstNonEmpty(hostname, host)
	record.OS = &models.OSInfo{
		Family:       "windows",
		Caption:      clean(facts.OS.Caption),
		Version:      clean(facts.OS.Version),
		Build:        clean(facts.OS.BuildNumber),
		Architecture: clean(facts.OS.OSArchitecture),
		Hostname:     hostname,
		LastBoot:     FormatCIMDateTime(facts.OS.LastBootUpTime),
	}

	record.Hardware = normalizeHardware(facts)
	record.Network, record.IPs, record.MAC = normalizeNetwork(facts.Adapters)
	record.Metrics = normalizeMetrics(facts)
	record.Applications = normalizeApplications(facts.Applications)

	record.Prune()
	return record
}

func normalizeHardware(facts *Facts) *models.HardwareInfo {
	hw := &models.HardwareInfo{
		Manufacturer:       clean(facts.Computer.Manufacturer),
		Model:              clean(facts.Computer.Model),
		LogicalProcessors:  intPtr(facts.Computer.NumberOfLogicalProcessors),
		PhysicalProcessors: intPtr(facts.Computer.NumberOfProcessors),
	}
	if mem := facts.Computer.TotalPhysicalMemory; mem != nil && *mem > 0 {
		hw.MemoryBytes = models.Uint64Ptr(*mem)
	}
	for _, p := range facts.Processors {
		name := clean(p.Name)
		if name == "" {
			continue
		}
		hw.Processors = append(hw.Processors, models.Processor{
			Name:              name,
			Cores:             intPtr(p.NumberOfCores),
			LogicalProcessors: intPtr(p.NumberOfLogicalProcessors),
			MaxClockMHz:       intPtr(p.MaxClockSpeed),
		})
	}
	return hw
}

func normalizeNetwork(adapters []NetworkAdapter) (*models.NetworkInfo, []string, *string) {
	network := &models.NetworkInfo{}
	var ips []string
	var primary string
	for _, a := range adapters {
		iface := &models.Interface{
			Name:      firstNonEmpty(clean(a.Description), "interface"),
			Addresses: []string{},
			IsUp:      models.BoolPtr(true),
			DHCP:      models.BoolPtr(a.DHCPEnabled),
			Prefixes:  nonEmpty(a.IPSubnet),
			Gateways:  nonEmpty(a.DefaultIPGateway),
		}
		if mac := clean(a.MACAddress); mac != "" {
			iface.MAC = parser.NormalizeMAC(mac)
		}
		for _, addr := range nonEmpty(a.IPAddress) {
			iface.Addresses = append(iface.Addresses, addr)
			if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
				iface.IPv4Addresses = append(iface.IPv4Addresses, addr)
			} else if ip != nil {
				iface.IPv6Addresses = append(iface.IPv6Addresses, addr)
			}
			ips = models.AppendUnique(ips, addr)
		}
		if primary == "" && iface.MAC != "" && !strings.HasPrefix(iface.MAC, "00:00:00") {
			primary = iface.MAC
		}
		network.Interfaces = append(network.Interfaces, iface)
	}
	return network, ips, models.StringPtr(primary)
}

func normalizeMetrics(facts *Facts) *models.Metrics {
	m := &models.Metrics{Memory: &models.MemoryUsage{}}
	if total := facts.OS.TotalVisibleMemorySize; total != nil && *total > 0 {
		m.Memory.TotalBytes = models.Uint64Ptr(*total * 1024)
	}
	if free := facts.OS.FreePhysicalMemory; free != nil {
		m.Memory.FreeBytes = models.Uint64Ptr(*free * 1024)
	}

	for _, d := range facts.Disks {
		disk := models.DiskInfo{
			Filesystem: firstNonEmpty(clean(d.FileSystem), clean(d.DeviceID)),
			Mount:      clean(d.DeviceID),
			VolumeName: clean(d.VolumeName),
		}
		if d.Size != nil && *d.Size > 0 {
			disk.SizeKB = models.Uint64Ptr(*d.Size / 1024)
		}
		if d.FreeSpace != nil {
			disk.AvailableKB = models.Uint64Ptr(*d.FreeSpace / 1024)
		}
		if d.Size != nil && d.FreeSpace != nil && *d.Size >= *d.FreeSpace {
			used := *d.Size - *d.FreeSpace
			disk.UsedKB = models.Uint64Ptr(used / 1024)
			if *d.Size > 0 {
				disk.Capacity = fmt.Sprintf("%.1f%%", float64(used)/float64(*d.Size)*100)
			}
		}
		m.Disks = append(m.Disks, disk)
	}
	return m
}

func normalizeApplications(apps []Application) []models.Application {
	var result []models.Application
	seen := make(map[string]bool, len(apps))
	for _, app := range apps {
		name := clean(app.Name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, models.Application{
			Name:        name,
			Version:     clean(app.Version),
			Publisher:   clean(app.Publisher),
			InstallDate: FormatInstallDate(app.InstallDate),
		})
	}
	return result
}

func intPtr(v *uint32) *int {
	if v == nil {
		return nil
	}
	return models.IntPtr(int(*v))
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = clean(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
