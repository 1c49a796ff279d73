// Uptime and load: time since boot and load averages for the local record.
// Uses gopsutil for cross-platform uptime metrics.
package collector

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/load"

	"github.com/Guliveer/assetprobe/internal/models"
)

func gatherUptime(ctx context.Context, s *snapshot) {
	// Windows has no load average.
	if runtime.GOOS == "windows" {
		return
	}
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		s.fail("load average", err)
		return
	}
	s.load = avg
}

func (s *snapshot) cpuLoad() *models.CPULoad {
	if s.load == nil {
		return nil
	}
	return &models.CPULoad{Load1: s.load.Load1, Load5: s.load.Load5, Load15: s.load.Load15}
}

// formatUptime renders seconds the way uptime(1) does, e.g. "3 days, 2:01".
func formatUptime(seconds uint64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	clock := fmt.Sprintf("%d:%02d", hours, minutes)
	switch {
	case days == 1:
		return "1 day, " + clock
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
	return clock
}
