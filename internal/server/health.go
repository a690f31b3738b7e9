package server

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

const gb = 1024 * 1024 * 1024

// healthHandler reports store health plus host metrics. Metric lookups that
// fail are left out rather than failing the probe.
func (s *Server) healthHandler(c echo.Context) error {
	storeHealth := s.store.Health()

	status := http.StatusOK
	if storeHealth["status"] == "down" {
		status = http.StatusServiceUnavailable
	}

	rt := map[string]interface{}{
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"start_time": s.startedAt.Format(time.RFC3339),
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
	}
	if hInfo, err := host.Info(); err == nil {
		rt["os"] = hInfo.OS
		rt["platform"] = hInfo.Platform
		rt["arch"] = hInfo.KernelArch
		rt["hostname"] = hInfo.Hostname
	}

	// Zero interval compares against the previous call so the probe never blocks.
	cpuStats := map[string]interface{}{"cores": runtime.NumCPU()}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuStats["usage_percent"] = fmt.Sprintf("%.2f%%", pct[0])
	}

	memStats := map[string]interface{}{}
	if v, err := mem.VirtualMemory(); err == nil {
		memStats["total_gb"] = fmt.Sprintf("%.2f GB", float64(v.Total)/gb)
		memStats["used_gb"] = fmt.Sprintf("%.2f GB", float64(v.Used)/gb)
		memStats["used_percent"] = fmt.Sprintf("%.2f%%", v.UsedPercent)
	}

	return c.JSON(status, map[string]interface{}{
		"status":  storeHealth["status"],
		"store":   storeHealth,
		"runtime": rt,
		"cpu":     cpuStats,
		"memory":  memStats,
	})
}
