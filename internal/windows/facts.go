// Package windows collects inventory from Windows hosts through WMI or,
// when WMI cannot be used, a PowerShell script run over WinRM. Both
// backends fill the same Facts structure and share one normalization
// routine, so the resulting record only differs in probe_source.
package windows

// Facts is the raw fact set gathered by a backend. Field names follow the
// WMI property names so the WMI backend can decode into these types
// directly.
type Facts struct {
	OS           OperatingSystem
	Computer     ComputerSystem
	Processors   []Processor
	Adapters     []NetworkAdapter
	Disks        []LogicalDisk
	Applications []Application
}

// OperatingSystem mirrors Win32_OperatingSystem. Memory counters are in
// kilobytes; LastBootUpTime is a CIM datetime string.
type OperatingSystem struct {
	Caption                string
	Version                string
	BuildNumber            string
	CSName                 string
	OSArchitecture         string
	LastBootUpTime         string
	TotalVisibleMemorySize *uint64
	FreePhysicalMemory     *uint64
}

// ComputerSystem mirrors Win32_ComputerSystem. TotalPhysicalMemory is in
// bytes.
type ComputerSystem struct {
	Name                      string
	Manufacturer              string
	Model                     string
	TotalPhysicalMemory       *uint64
	NumberOfProcessors        *uint32
	NumberOfLogicalProcessors *uint32
}

// Processor mirrors Win32_Processor.
type Processor struct {
	Name                      string
	NumberOfCores             *uint32
	NumberOfLogicalProcessors *uint32
	MaxClockSpeed             *uint32
}

// NetworkAdapter mirrors Win32_NetworkAdapterConfiguration.
type NetworkAdapter struct {
	Description      string
	MACAddress       string
	IPAddress        []string
	IPSubnet         []string
	DefaultIPGateway []string
	DHCPEnabled      bool
}

// LogicalDisk mirrors Win32_LogicalDisk. Sizes are in bytes.
type LogicalDisk struct {
	DeviceID   string
	FileSystem string
	VolumeName string
	Size       *uint64
	FreeSpace  *uint64
}

// Application is one installed product. InstallDate keeps the raw
// yyyymmdd form.
type Application struct {
	Name        string
	Version     string
	Publisher   string
	InstallDate string
}

// applicationLimit returns how many applications to collect, zero meaning
// none.
func applicationLimit(collect bool, limit int) int {
	if !collect || limit <= 0 {
		return 0
	}
	return limit
}
