package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostMetrics tracks load on the machine running the judge.
type HostMetrics struct {
	CPUUsage   prometheus.Gauge
	MemoryUsed prometheus.Gauge
}

var hostMetrics = &HostMetrics{
	CPUUsage: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "execjudge_host_cpu_usage_percent",
		Help: "Total CPU usage percentage across all cores",
	}),
	MemoryUsed: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "execjudge_host_memory_used_bytes",
		Help: "Total used memory in bytes",
	}),
}

// Host returns the process-wide host gauges.
func Host() *HostMetrics {
	return hostMetrics
}

// Refresh samples CPU and memory once.
func (m *HostMetrics) Refresh(ctx context.Context) error {
	percent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return err
	}
	if len(percent) > 0 {
		m.CPUUsage.Set(percent[0])
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	m.MemoryUsed.Set(float64(vm.Used))
	return nil
}

// Collect refreshes the gauges every interval until ctx is done.
func (m *HostMetrics) Collect(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			_ = m.Refresh(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
