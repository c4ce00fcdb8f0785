// Package health reports host resource usage. The worker uses it as a
// startup gate (no point claiming jobs a full disk will fail) and the
// API exposes it on /health.
package health

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type Snapshot struct {
	CPUPercent   float64 `json:"cpu_percent"`
	MemAvailable uint64  `json:"mem_available_bytes"`
	DiskFree     uint64  `json:"disk_free_bytes"`
}

// Take gathers a best-effort snapshot for path's filesystem. Individual
// probe failures leave the field zero rather than failing the snapshot.
func Take(path string) Snapshot {
	var s Snapshot
	if p, err := cpu.Percent(0, false); err == nil && len(p) > 0 {
		s.CPUPercent = p[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemAvailable = vm.Available
	}
	if d, err := disk.Usage(path); err == nil {
		s.DiskFree = d.Free
	}
	return s
}

// CheckDisk fails when the filesystem holding path has less than
// minFree bytes available.
func CheckDisk(path string, minFree uint64) error {
	d, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("disk usage for %s: %w", path, err)
	}
	if d.Free < minFree {
		return fmt.Errorf("not enough free disk in %s: %d bytes available, %d required", path, d.Free, minFree)
	}
	return nil
}
