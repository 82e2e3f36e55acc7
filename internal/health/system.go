package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemMetrics is a snapshot of host usage.
type SystemMetrics struct {
	CPUUsage     float64           `json:"cpu_usage"`
	MemoryUsage  float64           `json:"memory_usage"`
	DiskUsage    float64           `json:"disk_usage"`
	NetworkIO    map[string]uint64 `json:"network_io"`
	ProcessCount int               `json:"process_count"`
	Error        string            `json:"error,omitempty"`
}

// Sampler reads host metrics.
type Sampler interface {
	Sample(ctx context.Context) (SystemMetrics, error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(ctx context.Context) (SystemMetrics, error)

func (f SamplerFunc) Sample(ctx context.Context) (SystemMetrics, error) { return f(ctx) }

// HostSampler reads the local machine through gopsutil.
type HostSampler struct {
	interval time.Duration
	path     string
}

// NewHostSampler measures cpu over interval. Disk usage is read for the root mount.
func NewHostSampler(interval time.Duration) *HostSampler {
	return &HostSampler{interval: interval, path: "/"}
}

func (s *HostSampler) Sample(ctx context.Context) (SystemMetrics, error) {
	var m SystemMetrics

	pct, err := cpu.PercentWithContext(ctx, s.interval, false)
	if err != nil {
		return m, fmt.Errorf("cpu: %w", err)
	}
	if len(pct) > 0 {
		m.CPUUsage = pct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return m, fmt.Errorf("memory: %w", err)
	}
	m.MemoryUsage = vm.UsedPercent

	du, err := disk.UsageWithContext(ctx, s.path)
	if err != nil {
		return m, fmt.Errorf("disk: %w", err)
	}
	m.DiskUsage = du.UsedPercent

	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		m.NetworkIO = map[string]uint64{
			"bytes_sent":   counters[0].BytesSent,
			"bytes_recv":   counters[0].BytesRecv,
			"packets_sent": counters[0].PacketsSent,
			"packets_recv": counters[0].PacketsRecv,
		}
	}
	if pids, err := process.PidsWithContext(ctx); err == nil {
		m.ProcessCount = len(pids)
	}
	return m, nil
}
