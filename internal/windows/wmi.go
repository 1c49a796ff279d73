package windows

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

const defaultNamespace = `root\cimv2`

const (
	queryOS        = "SELECT Caption, Version, BuildNumber, CSName, OSArchitecture, LastBootUpTime, TotalVisibleMemorySize, FreePhysicalMemory FROM Win32_OperatingSystem"
	queryComputer  = "SELECT Name, Manufacturer, Model, TotalPhysicalMemory, NumberOfProcessors, NumberOfLogicalProcessors FROM Win32_ComputerSystem"
	queryProcessor = "SELECT Name, NumberOfCores, NumberOfLogicalProcessors, MaxClockSpeed FROM Win32_Processor"
	queryAdapters  = "SELECT Description, MACAddress, IPAddress, IPSubnet, DefaultIPGateway, DHCPEnabled FROM Win32_NetworkAdapterConfiguration WHERE IPEnabled = TRUE"
	queryDisks     = "SELECT DeviceID, FileSystem, VolumeName, Size, FreeSpace FROM Win32_LogicalDisk WHERE DriveType = 3"
	queryProducts  = "SELECT Name, Version, Vendor, InstallDate FROM Win32_Product"
)

// productRow mirrors Win32_Product, which names the publisher Vendor.
type productRow struct {
	Name        string
	Version     string
	Vendor      string
	InstallDate string
}

// wmiQuerier runs one WQL query against host and decodes the rows into dst,
// a pointer to a slice of structs whose field names match the selected
// properties.
type wmiQuerier func(query string, dst interface{}, host, namespace string, creds Credentials) error

// WMIBackend queries WMI over DCOM. It only works when the probe itself
// runs on Windows.
type WMIBackend struct {
	logger    *zap.Logger
	query     wmiQuerier
	available func() error
}

// NewWMIBackend creates the WMI backend for this platform.
func NewWMIBackend(logger *zap.Logger) *WMIBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WMIBackend{logger: logger, query: queryWMI, available: wmiAvailable}
}

func (b *WMIBackend) Name() string { return models.SourceWMI }

func (b *WMIBackend) Available() error { return b.available() }

// Collect runs the fixed query set. Win32_Product is optional: it is slow
// and disabled on some hosts, so its failure leaves the list empty.
func (b *WMIBackend) Collect(ctx context.Context, target probe.Target) (*Facts, error) {
	creds, err := ResolveCredentials(target)
	if err != nil {
		return nil, err
	}
	if err := requirePassword(b.Name(), creds); err != nil {
		return nil, err
	}
	namespace := normalizeNamespace(target.Windows.Namespace)
	log := probe.LoggerFrom(ctx, b.logger)

	run := func(query string, dst interface{}) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.query(query, dst, target.Host, namespace, creds); err != nil {
			return fmt.Errorf("query %q: %w", query, err)
		}
		return nil
	}

	var (
		systems    []OperatingSystem
		computers  []ComputerSystem
		processors []Processor
		adapters   []NetworkAdapter
		disks      []LogicalDisk
	)
	if err := run(queryOS, &systems); err != nil {
		return nil, err
	}
	if err := run(queryComputer, &computers); err != nil {
		return nil, err
	}
	if err := run(queryProcessor, &processors); err != nil {
		return nil, err
	}
	if err := run(queryAdapters, &adapters); err != nil {
		return nil, err
	}
	if err := run(queryDisks, &disks); err != nil {
		return nil, err
	}

	facts := &Facts{Processors: processors, Adapters: adapters, Disks: disks}
	if len(systems) > 0 {
		facts.OS = systems[0]
	}
	if len(computers) > 0 {
		facts.Computer = computers[0]
	}

	if limit := applicationLimit(target.Windows.CollectApplications, target.Windows.ApplicationsLimit); limit > 0 {
		var products []productRow
		if err := run(queryProducts, &products); err != nil {
			log.Debug("Win32_Product query failed", zap.String("host", target.Host), zap.Error(err))
		}
		for i, p := range products {
			if i >= limit {
				break
			}
			facts.Applications = append(facts.Applications, Application{
				Name:        p.Name,
				Version:     p.Version,
				Publisher:   p.Vendor,
				InstallDate: p.InstallDate,
			})
		}
	}
	return facts, nil
}

// normalizeNamespace accepts "//./root/cimv2" style paths as well as the
// plain namespace.
func normalizeNamespace(ns string) string {
	ns = strings.TrimSpace(strings.ReplaceAll(ns, "/", `\`))
	ns = strings.TrimPrefix(ns, `\\.\`)
	ns = strings.Trim(ns, `\`)
	if ns == "" {
		return defaultNamespace
	}
	return ns
}
