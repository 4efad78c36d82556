// Package sysinfo samples host CPU, memory and root filesystem usage.
package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/playperu/dicebot/internal/dicebot"
)

// CPUWindow is how long CPU usage is measured for.
const CPUWindow = time.Second

type Sampler struct {
	window time.Duration
	path   string
}

func NewSampler() *Sampler {
	return &Sampler{window: CPUWindow, path: "/"}
}

// Sample blocks for the CPU sampling window.
func (s *Sampler) Sample(ctx context.Context) (dicebot.HostStatus, error) {
	pct, err := cpu.PercentWithContext(ctx, s.window, false)
	if err != nil {
		return dicebot.HostStatus{}, fmt.Errorf("sampling cpu: %w", err)
	}
	if len(pct) == 0 {
		return dicebot.HostStatus{}, fmt.Errorf("sampling cpu: no data")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return dicebot.HostStatus{}, fmt.Errorf("reading memory: %w", err)
	}

	du, err := disk.UsageWithContext(ctx, s.path)
	if err != nil {
		return dicebot.HostStatus{}, fmt.Errorf("reading disk usage of %s: %w", s.path, err)
	}

	return dicebot.HostStatus{
		CPUPercent: pct[0],
		Memory: dicebot.Usage{
			Total:       vm.Total,
			Used:        vm.Used,
			Free:        vm.Free,
			UsedPercent: vm.UsedPercent,
		},
		Disk: dicebot.Usage{
			Total:       du.Total,
			Used:        du.Used,
			Free:        du.Free,
			UsedPercent: du.UsedPercent,
		},
	}, nil
}
