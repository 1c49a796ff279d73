// CPU: processor model and counts for the local record.
// Uses gopsutil for cross-platform CPU information.
package collector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/Guliveer/assetprobe/internal/models"
)

func gatherCPU(ctx context.Context, s *snapshot) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		s.fail("cpu info", err)
	} else {
		s.cpus = infos
	}

	// Logical count is non-fatal: hardware falls back to the info entries.
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		s.logical = n
	}
}

func (s *snapshot) hardware() *models.HardwareInfo {
	hw := &models.HardwareInfo{}
	if s.host != nil {
		hw.Architecture = s.host.KernelArch
	}
	if s.vmem != nil {
		hw.MemoryBytes = models.Uint64Ptr(s.vmem.Total)
	}
	if len(s.cpus) > 0 {
		hw.CPUModel = strings.TrimSpace(s.cpus[0].ModelName)
	}
	switch {
	case s.logical > 0:
		hw.CPUCount = models.IntPtr(s.logical)
	case len(s.cpus) > 0:
		hw.CPUCount = models.IntPtr(len(s.cpus))
	}
	return hw
}
