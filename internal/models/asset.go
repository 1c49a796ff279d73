// Package models defines the canonical asset record produced by every
// collector. These structures are serialized to JSON for the central API,
// so the JSON shape is the contract: optional top-level sections marshal as
// null, empty strings and empty sections are pruned.
package models

// Probe sources identify which backend produced a record.
const (
	SourceCiscoSSH = "cisco-ssh"
	SourceSSH      = "ssh"
	SourceWMI      = "wmi"
	SourceWinRM    = "winrm"
	SourceAgent    = "agent"
)

// AssetRecord is the backend-independent description of one device.
type AssetRecord struct {
	Name         string        `json:"name"`
	OS           *OSInfo       `json:"os"`
	Hardware     *HardwareInfo `json:"hardware"`
	Network      *NetworkInfo  `json:"network"`
	IPs          []string      `json:"ips"`
	MAC          *string       `json:"mac"`
	Metrics      *Metrics      `json:"metrics"`
	Applications []Application `json:"applications"`
	ProbeSource  string        `json:"probe_source"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// OSInfo holds operating-system facts. Which fields are set depends on the
// device family.
type OSInfo struct {
	Family        string `json:"family,omitempty"`
	Vendor        string `json:"vendor,omitempty"`
	Name          string `json:"name,omitempty"`
	Version       string `json:"version,omitempty"`
	ID            string `json:"id,omitempty"`
	Distribution  string `json:"distribution,omitempty"`
	Caption       string `json:"caption,omitempty"`
	Build         string `json:"build,omitempty"`
	Architecture  string `json:"architecture,omitempty"`
	KernelName    string `json:"kernel_name,omitempty"`
	KernelRelease string `json:"kernel_release,omitempty"`
	Image         string `json:"image,omitempty"`
	Hostname      string `json:"hostname,omitempty"`
	Uptime        string `json:"uptime,omitempty"`
	LastBoot      string `json:"last_boot,omitempty"`
}

// HardwareInfo holds chassis and compute facts. Numeric fields are pointers
// so that a reported zero survives pruning.
type HardwareInfo struct {
	Vendor             string      `json:"vendor,omitempty"`
	Manufacturer       string      `json:"manufacturer,omitempty"`
	Model              string      `json:"model,omitempty"`
	Serial             string      `json:"serial,omitempty"`
	BaseMAC            string      `json:"base_mac,omitempty"`
	MemoryBytes        *uint64     `json:"memory_bytes,omitempty"`
	CPUModel           string      `json:"cpu_model,omitempty"`
	CPUCount           *int        `json:"cpu_count,omitempty"`
	Architecture       string      `json:"architecture,omitempty"`
	LogicalProcessors  *int        `json:"logical_processors,omitempty"`
	PhysicalProcessors *int        `json:"physical_processors,omitempty"`
	Processors         []Processor `json:"processors,omitempty"`
}

// Processor describes one physical CPU package.
type Processor struct {
	Name              string `json:"name"`
	Cores             *int   `json:"cores,omitempty"`
	LogicalProcessors *int   `json:"logical_processors,omitempty"`
	MaxClockMHz       *int   `json:"max_clock_mhz,omitempty"`
}

// NetworkInfo groups interfaces and routing instances.
type NetworkInfo struct {
	Interfaces []*Interface `json:"interfaces,omitempty"`
	VRFs       []VRF        `json:"vrfs,omitempty"`
}

// Interface is keyed by Name within a record. Address slices keep
// first-seen order without duplicates.
type Interface struct {
	Name          string   `json:"name"`
	Addresses     []string `json:"addresses"`
	IPv4Addresses []string `json:"ipv4_addresses,omitempty"`
	IPv6Addresses []string `json:"ipv6_addresses,omitempty"`
	Status        string   `json:"status,omitempty"`
	Protocol      string   `json:"protocol,omitempty"`
	Description   string   `json:"description,omitempty"`
	VRF           string   `json:"vrf,omitempty"`
	MAC           string   `json:"mac,omitempty"`
	IsUp          *bool    `json:"is_up,omitempty"`
	DHCP          *bool    `json:"dhcp,omitempty"`
	Prefixes      []string `json:"prefixes,omitempty"`
	Gateways      []string `json:"gateways,omitempty"`
}

// VRF is a named routing instance. RouteDistinguisher is nil when the
// device reports none.
type VRF struct {
	Name               string   `json:"name"`
	RouteDistinguisher *string  `json:"route_distinguisher"`
	Interfaces         []string `json:"interfaces"`
}

// Application is one installed software package.
type Application struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	InstallDate string `json:"install_date,omitempty"`
}

// AddWarning appends a non-fatal issue to the record.
func (r *AssetRecord) AddWarning(msg string) {
	if msg == "" {
		return
	}
	r.Warnings = append(r.Warnings, msg)
}

// Prune replaces empty optional sections with nil and guarantees that the
// list fields that are always present marshal as arrays.
func (r *AssetRecord) Prune() {
	if r.OS != nil && *r.OS == (OSInfo{}) {
		r.OS = nil
	}
	if r.Hardware != nil && r.Hardware.isZero() {
		r.Hardware = nil
	}
	if r.Network != nil {
		if len(r.Network.Interfaces) == 0 && len(r.Network.VRFs) == 0 {
			r.Network = nil
		} else {
			for _, iface := range r.Network.Interfaces {
				if iface.Addresses == nil {
					iface.Addresses = []string{}
				}
			}
			for i := range r.Network.VRFs {
				if r.Network.VRFs[i].Interfaces == nil {
					r.Network.VRFs[i].Interfaces = []string{}
				}
			}
		}
	}
	if r.Metrics != nil {
		r.Metrics.prune()
	}
	if r.Metrics != nil && r.Metrics.isZero() {
		r.Metrics = nil
	}
	if len(r.Applications) == 0 {
		r.Applications = nil
	}
	if r.MAC != nil && *r.MAC == "" {
		r.MAC = nil
	}
	if r.IPs == nil {
		r.IPs = []string{}
	}
}

func (h *HardwareInfo) isZero() bool {
	return h.Vendor == "" && h.Manufacturer == "" && h.Model == "" && h.Serial == "" &&
		h.BaseMAC == "" && h.MemoryBytes == nil && h.CPUModel == "" && h.CPUCount == nil &&
		h.Architecture == "" && h.LogicalProcessors == nil && h.PhysicalProcessors == nil &&
		len(h.Processors) == 0
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Uint64Ptr returns a pointer to v.
func Uint64Ptr(v uint64) *uint64 { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// AppendUnique appends values not already in list, preserving order.
func AppendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
