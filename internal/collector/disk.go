// Disk usage: per-mount usage for the local record.
// Uses gopsutil for cross-platform disk metrics and the shared filesystem
// filters so local and SSH probes skip the same mounts.
package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/parser"
)

type diskReading struct {
	partition disk.PartitionStat
	usage     *disk.UsageStat
}

// gatherDisks reads usage for all local partitions. Inaccessible
// partitions are silently skipped.
func gatherDisks(ctx context.Context, s *snapshot, log *zap.Logger) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		s.fail("disk partitions", err)
		return
	}

	for _, p := range partitions {
		if parser.IsPseudoFilesystem(p.Fstype) || parser.IsPseudoFilesystem(p.Device) {
			log.Debug("Skipping pseudo/network filesystem",
				zap.String("mount", p.Mountpoint),
				zap.String("fstype", p.Fstype))
			continue
		}
		if parser.IsSystemMount(p.Mountpoint) {
			continue
		}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		// Some virtual mounts report 0 size.
		if usage.Total == 0 {
			continue
		}
		s.disks = append(s.disks, diskReading{partition: p, usage: usage})
	}
}

func (s *snapshot) diskInfo() []models.DiskInfo {
	var out []models.DiskInfo
	for _, d := range s.disks {
		out = append(out, models.DiskInfo{
			Filesystem:  firstNonEmpty(d.partition.Device, d.partition.Fstype),
			Mount:       d.partition.Mountpoint,
			SizeKB:      models.Uint64Ptr(d.usage.Total / 1024),
			UsedKB:      models.Uint64Ptr(d.usage.Used / 1024),
			AvailableKB: models.Uint64Ptr(d.usage.Free / 1024),
			Capacity:    fmt.Sprintf("%.0f%%", d.usage.UsedPercent),
		})
	}
	return out
}
