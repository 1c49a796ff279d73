package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

// LocalCollector describes the machine the probe runs on, the same way a
// remote collector describes its target.
type LocalCollector struct {
	logger *zap.Logger
}

// NewLocalCollector creates a local agent collector.
func NewLocalCollector(logger *zap.Logger) *LocalCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalCollector{logger: logger}
}

// Name returns the collector identifier.
func (c *LocalCollector) Name() string { return "local" }

// Supports reports whether the collector handles the target kind.
func (c *LocalCollector) Supports(kind string) bool { return kind == probe.KindLocal }

// IsAvailable returns true; gopsutil supports every platform we build for.
func (c *LocalCollector) IsAvailable() bool { return true }

// snapshot holds the raw gopsutil readings a record is built from. A nil
// field means the reading failed.
type snapshot struct {
	host     *host.InfoStat
	release  map[string]string
	cpus     []cpu.InfoStat
	logical  int
	vmem     *mem.VirtualMemoryStat
	swap     *mem.SwapMemoryStat
	load     *load.AvgStat
	disks    []diskReading
	ifaces   net.InterfaceStatList
	warnings []string
}

func (s *snapshot) fail(what string, err error) {
	s.warnings = append(s.warnings, fmt.Sprintf("%s: %v", what, err))
}

// Collect takes one snapshot of the local host. Individual readings that
// fail become warnings.
func (c *LocalCollector) Collect(ctx context.Context, target probe.Target) (*models.AssetRecord, error) {
	log := probe.LoggerFrom(ctx, c.logger)
	s := &snapshot{}

	gatherOS(ctx, s)
	gatherCPU(ctx, s)
	gatherMemory(ctx, s)
	gatherUptime(ctx, s)
	gatherDisks(ctx, s, log)
	gatherNetwork(ctx, s)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record := s.record(target)
	log.Info("Local probe complete",
		zap.String("name", record.Name),
		zap.Int("warnings", len(record.Warnings)))
	return record, nil
}

// record builds the canonical record from the snapshot.
func (s *snapshot) record(target probe.Target) *models.AssetRecord {
	record := &models.AssetRecord{ProbeSource: models.SourceAgent}

	record.OS = s.osInfo()
	record.Name = firstNonEmpty(record.OS.Hostname, target.DisplayName, target.Host)
	record.Hardware = s.hardware()
	record.Network, record.IPs, record.MAC = s.network()
	record.Metrics = &models.Metrics{
		CPULoad: s.cpuLoad(),
		Memory:  s.memory(),
		Disks:   s.diskInfo(),
	}

	for _, w := range s.warnings {
		record.AddWarning(w)
	}
	record.Prune()
	return record
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
