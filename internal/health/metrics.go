package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sampleMaxAge bounds how stale a scraped host gauge may be.
const sampleMaxAge = 5 * time.Second

// RegisterMetrics exposes host usage and uptime as gauges on reg.
func (c *Checker) RegisterMetrics(reg prometheus.Registerer) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "cpu_usage_percent",
			Help: "CPU usage percentage",
		}, func() float64 { return c.recent(sampleMaxAge).CPUUsage }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "memory_usage_percent",
			Help: "Memory usage percentage",
		}, func() float64 { return c.recent(sampleMaxAge).MemoryUsage }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "disk_usage_percent",
			Help: "Disk usage percentage",
		}, func() float64 { return c.recent(sampleMaxAge).DiskUsage }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "process_count",
			Help: "Number of processes",
		}, func() float64 { return float64(c.recent(sampleMaxAge).ProcessCount) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Seconds since the service started",
		}, func() float64 { return c.Uptime().Seconds() }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
