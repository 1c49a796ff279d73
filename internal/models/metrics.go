package models

// Metrics holds the health data collected alongside inventory.
type Metrics struct {
	CPULoad *CPULoad     `json:"cpu_load,omitempty"`
	Memory  *MemoryUsage `json:"memory,omitempty"`
	Disks   []DiskInfo   `json:"disks,omitempty"`
}

// CPULoad holds the 1, 5 and 15 minute load averages.
type CPULoad struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// MemoryUsage is expressed in bytes regardless of the unit the device
// reports.
type MemoryUsage struct {
	TotalBytes     *uint64 `json:"total_bytes,omitempty"`
	FreeBytes      *uint64 `json:"free_bytes,omitempty"`
	SwapTotalBytes *uint64 `json:"swap_total_bytes,omitempty"`
	SwapFreeBytes  *uint64 `json:"swap_free_bytes,omitempty"`
}

// DiskInfo represents usage for a single filesystem, in kilobytes.
type DiskInfo struct {
	Filesystem  string  `json:"filesystem,omitempty"`
	Mount       string  `json:"mount,omitempty"`
	SizeKB      *uint64 `json:"size_kb,omitempty"`
	UsedKB      *uint64 `json:"used_kb,omitempty"`
	AvailableKB *uint64 `json:"available_kb,omitempty"`
	Capacity    string  `json:"capacity,omitempty"`
	VolumeName  string  `json:"volume_name,omitempty"`
}

func (m *Metrics) prune() {
	if m.Memory != nil && *m.Memory == (MemoryUsage{}) {
		m.Memory = nil
	}
}

func (m *Metrics) isZero() bool {
	return m.CPULoad == nil && (m.Memory == nil || *m.Memory == (MemoryUsage{})) && len(m.Disks) == 0
}

// Online status values reported alongside a pushed record.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Report is the payload pushed to the central API for one probed device.
type Report struct {
	Asset        *AssetRecord `json:"asset"`
	OnlineStatus string       `json:"online_status"`
}
