package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Guliveer/assetprobe/internal/models"
)

// UnixInterface is one interface reported by ip(8) or ifconfig(8).
// Addresses keep the device notation (prefix length, zone index).
type UnixInterface struct {
	Name      string
	Addresses []string
	MAC       string
	IsUp      bool
}

// CPUFacts is the partial produced by lscpu.
type CPUFacts struct {
	Model        string
	Count        *int
	Architecture string
}

// MemInfo holds /proc/meminfo values in kilobytes.
type MemInfo struct {
	TotalKB     *uint64
	FreeKB      *uint64
	SwapTotalKB *uint64
	SwapFreeKB  *uint64
}

// UptimeFacts is the partial produced by uptime(1).
type UptimeFacts struct {
	Uptime string
	Load   *models.CPULoad
}

var (
	intRE         = regexp.MustCompile(`\d+`)
	uptimeUsersRE = regexp.MustCompile(`up\s+(.+?),\s+\d+\s+users?`)
	uptimeLoadRE  = regexp.MustCompile(`up\s+(.+?),\s+load`)
	loadRE        = regexp.MustCompile(`load averages?:\s*([\d.]+),?\s+([\d.]+),?\s+([\d.]+)`)
)

// ParseOSRelease parses KEY=VALUE lines such as /etc/os-release. Comments
// are skipped and surrounding quotes are removed from values.
func ParseOSRelease(output string) map[string]string {
	fields := make(map[string]string)
	for _, line := range lines(output) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			fields[strings.TrimSpace(parts[0])] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		}
	}
	return fields
}

type ipAddrJSON struct {
	IfName   string   `json:"ifname"`
	Flags    []string `json:"flags"`
	Address  string   `json:"address"`
	AddrInfo []struct {
		Local     string `json:"local"`
		PrefixLen *int   `json:"prefixlen"`
	} `json:"addr_info"`
}

// ParseIPAddrJSON reads "ip -j addr show". The second return value is false
// when the output is not a JSON array, which callers use to fall back to
// ifconfig.
func ParseIPAddrJSON(output string) ([]UnixInterface, bool) {
	var raw []ipAddrJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &raw); err != nil {
		return nil, false
	}
	var result []UnixInterface
	for _, entry := range raw {
		if entry.IfName == "" {
			continue
		}
		iface := UnixInterface{Name: entry.IfName, Addresses: []string{}}
		for _, flag := range entry.Flags {
			if flag == "UP" {
				iface.IsUp = true
			}
		}
		for _, addr := range entry.AddrInfo {
			if addr.Local == "" {
				continue
			}
			formatted := addr.Local
			if addr.PrefixLen != nil {
				formatted = addr.Local + "/" + strconv.Itoa(*addr.PrefixLen)
			}
			iface.Addresses = append(iface.Addresses, formatted)
		}
		result = append(result, iface)
	}
	return result, true
}

// ParseIPLinkJSON reads "ip -j link show" into an interface name to MAC map.
func ParseIPLinkJSON(output string) map[string]string {
	var raw []ipAddrJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &raw); err != nil {
		return nil
	}
	macs := make(map[string]string, len(raw))
	for _, entry := range raw {
		if entry.IfName != "" && entry.Address != "" {
			macs[entry.IfName] = entry.Address
		}
	}
	return macs
}

// ParseIfconfig reads Linux, BSD and macOS ifconfig output. A line starting
// in column zero opens an interface; indented lines carry inet, inet6,
// ether and lladdr attributes.
func ParseIfconfig(output string) []UnixInterface {
	var result []UnixInterface
	for _, line := range lines(output) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] != ' ' && line[0] != '\t' {
			iface := UnixInterface{
				Name:      strings.TrimSuffix(strings.Fields(line)[0], ":"),
				Addresses: []string{},
			}
			if open := strings.Index(line, "<"); open >= 0 {
				if end := strings.Index(line[open:], ">"); end > 0 {
					for _, flag := range strings.Split(line[open+1:open+end], ",") {
						if flag == "UP" {
							iface.IsUp = true
						}
					}
				}
			} else {
				iface.IsUp = strings.Contains(line, "UP")
			}
			if idx := strings.Index(line, "HWaddr "); idx >= 0 {
				if f := strings.Fields(line[idx+len("HWaddr "):]); len(f) > 0 {
					iface.MAC = f[0]
				}
			}
			result = append(result, iface)
			continue
		}
		if len(result) == 0 {
			continue
		}
		current := &result[len(result)-1]
		fields := strings.Fields(line)
		switch {
		case (fields[0] == "inet" || fields[0] == "inet6") && len(fields) >= 2:
			addr := strings.TrimPrefix(fields[1], "addr:")
			if addr == "" && len(fields) >= 3 {
				addr = fields[2]
			}
			if addr != "" {
				current.Addresses = append(current.Addresses, addr)
			}
		case fields[0] == "ether" && len(fields) >= 2:
			current.MAC = fields[1]
		case fields[0] == "lladdr" && len(fields) >= 2:
			current.MAC = fields[1]
		}
	}
	return result
}

// BareAddress strips a zone index and prefix length from an address.
func BareAddress(addr string) string {
	addr = strings.SplitN(addr, "%", 2)[0]
	return strings.SplitN(addr, "/", 2)[0]
}

// ParseLscpuJSON reads "lscpu -J". The second return value is false when
// the output is not the expected JSON document.
func ParseLscpuJSON(output string) (CPUFacts, bool) {
	var facts CPUFacts
	var doc struct {
		Lscpu []struct {
			Field string  `json:"field"`
			Data  *string `json:"data"`
		} `json:"lscpu"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &doc); err != nil || doc.Lscpu == nil {
		return facts, false
	}
	for _, entry := range doc.Lscpu {
		if entry.Data == nil {
			continue
		}
		facts.apply(entry.Field, *entry.Data)
	}
	return facts, true
}

// ParseLscpuText reads the plain "Key: value" form of lscpu.
func ParseLscpuText(output string) CPUFacts {
	var facts CPUFacts
	for _, line := range lines(output) {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			facts.apply(parts[0], parts[1])
		}
	}
	return facts
}

func (f *CPUFacts) apply(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(field), ":")) {
	case "model name":
		if f.Model == "" {
			f.Model = value
		}
	case "cpu(s)":
		if n, err := strconv.Atoi(value); err == nil && f.Count == nil {
			f.Count = models.IntPtr(n)
		}
	case "architecture":
		if f.Architecture == "" {
			f.Architecture = value
		}
	}
}

// ParseMeminfo reads /proc/meminfo. MemAvailable is preferred over MemFree
// when the kernel reports it.
func ParseMeminfo(output string) MemInfo {
	var info MemInfo
	values := make(map[string]uint64)
	for _, line := range lines(output) {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if n, ok := ExtractInt(parts[1]); ok && n >= 0 {
			values[strings.TrimSpace(parts[0])] = uint64(n)
		}
	}
	lookup := func(keys ...string) *uint64 {
		for _, key := range keys {
			if v, ok := values[key]; ok {
				return models.Uint64Ptr(v)
			}
		}
		return nil
	}
	info.TotalKB = lookup("MemTotal")
	info.FreeKB = lookup("MemAvailable", "MemFree")
	info.SwapTotalKB = lookup("SwapTotal")
	info.SwapFreeKB = lookup("SwapFree")
	return info
}

// ParseSwapctl reads "swapctl -s -k" in both the OpenBSD form
// ("total: N 1K-blocks allocated, U used, A available") and the FreeBSD
// form ("Total: N U"). Values are kilobytes.
func ParseSwapctl(output string) (totalKB, freeKB *uint64) {
	for _, line := range lines(output) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "total:") {
			continue
		}
		nums := intRE.FindAllString(line, -1)
		if len(nums) < 2 {
			return nil, nil
		}
		total, _ := strconv.ParseUint(nums[0], 10, 64)
		if strings.Contains(line, "available") && len(nums) >= 4 {
			avail, _ := strconv.ParseUint(nums[3], 10, 64)
			return models.Uint64Ptr(total), models.Uint64Ptr(avail)
		}
		used, _ := strconv.ParseUint(nums[len(nums)-1], 10, 64)
		if strings.Contains(line, "used") && len(nums) >= 3 {
			used, _ = strconv.ParseUint(nums[2], 10, 64)
		}
		if used > total {
			used = total
		}
		return models.Uint64Ptr(total), models.Uint64Ptr(total - used)
	}
	return nil, nil
}

// ParseDF reads POSIX "df -P -k" output. Pseudo and remote filesystems,
// system mounts and zero-sized entries are skipped.
func ParseDF(output string) []models.DiskInfo {
	var disks []models.DiskInfo
	for i, line := range lines(output) {
		fields := strings.Fields(line)
		if i == 0 && len(fields) > 0 && strings.EqualFold(fields[0], "Filesystem") {
			continue
		}
		if len(fields) < 6 {
			continue
		}
		size, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil || size == 0 {
			continue
		}
		mount := strings.Join(fields[5:], " ")
		if IsPseudoFilesystem(fields[0]) || IsSystemMount(mount) {
			continue
		}
		disk := models.DiskInfo{
			Filesystem: fields[0],
			Mount:      mount,
			SizeKB:     models.Uint64Ptr(size),
			Capacity:   fields[4],
		}
		if used, err := strconv.ParseUint(fields[2], 10, 64); err == nil {
			disk.UsedKB = models.Uint64Ptr(used)
		}
		if avail, err := strconv.ParseUint(fields[3], 10, 64); err == nil {
			disk.AvailableKB = models.Uint64Ptr(avail)
		}
		disks = append(disks, disk)
	}
	return disks
}

// ParseUptime reads uptime(1) output in the Linux ("load average: a, b, c")
// and BSD ("load averages: a b c") forms.
func ParseUptime(output string) UptimeFacts {
	var facts UptimeFacts
	text := strings.TrimSpace(strings.ReplaceAll(output, "\r", ""))
	if text == "" {
		return facts
	}
	facts.Uptime = firstGroup(uptimeUsersRE, text)
	if facts.Uptime == "" {
		facts.Uptime = firstGroup(uptimeLoadRE, text)
	}
	facts.Uptime = strings.Join(strings.Fields(facts.Uptime), " ")
	if m := loadRE.FindStringSubmatch(text); m != nil {
		l1, err1 := strconv.ParseFloat(m[1], 64)
		l5, err5 := strconv.ParseFloat(m[2], 64)
		l15, err15 := strconv.ParseFloat(m[3], 64)
		if err1 == nil && err5 == nil && err15 == nil {
			facts.Load = &models.CPULoad{Load1: l1, Load5: l5, Load15: l15}
		}
	}
	return facts
}

// ExtractInt returns the first run of digits in value, ignoring thousands
// separators.
func ExtractInt(value string) (int64, bool) {
	m := intRE.FindString(strings.ReplaceAll(value, ",", ""))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
