// Memory: physical and swap usage for the local record.
// Uses gopsutil for cross-platform memory metrics.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Guliveer/assetprobe/internal/models"
)

func gatherMemory(ctx context.Context, s *snapshot) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.fail("memory", err)
	} else {
		s.vmem = v
	}

	// Swap is optional; hosts without swap report zeros, not errors.
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		s.swap = sw
	}
}

func (s *snapshot) memory() *models.MemoryUsage {
	out := &models.MemoryUsage{}
	if s.vmem != nil {
		out.TotalBytes = models.Uint64Ptr(s.vmem.Total)
		out.FreeBytes = models.Uint64Ptr(s.vmem.Available)
	}
	if s.swap != nil && s.swap.Total > 0 {
		out.SwapTotalBytes = models.Uint64Ptr(s.swap.Total)
		out.SwapFreeBytes = models.Uint64Ptr(s.swap.Free)
	}
	return out
}
