package analyzer

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/denysvitali/repo-analyzer-go/internal/models"
)

// GetSystemResources returns process usage and disk usage of the scratch area
func (a *Analyzer) GetSystemResources() models.SystemResources {
	res := models.SystemResources{
		CPUCount:   runtime.NumCPU(),
		ScratchDir: a.scratch.Root(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		a.logger.Warnf("Failed to get process info: %v", err)
	} else {
		if cpuPercent, err := proc.CPUPercent(); err != nil {
			a.logger.Warnf("Failed to get CPU percent: %v", err)
		} else {
			res.CPUPercent = cpuPercent
		}

		if memInfo, err := proc.MemoryInfo(); err != nil {
			a.logger.Warnf("Failed to get memory info: %v", err)
		} else {
			res.MemoryRSS = memInfo.RSS
		}

		if memPercent, err := proc.MemoryPercent(); err != nil {
			a.logger.Warnf("Failed to get memory percent: %v", err)
		} else {
			res.MemoryPercent = memPercent
		}
	}

	// The scratch root may not exist until the first analysis
	usagePath := a.scratch.Root()
	if _, err := os.Stat(usagePath); err != nil {
		usagePath = os.TempDir()
	}
	if usage, err := disk.Usage(usagePath); err != nil {
		a.logger.Warnf("Failed to get disk usage: %v", err)
	} else {
		res.DiskTotal = usage.Total
		res.DiskUsed = usage.Used
		res.DiskFree = usage.Free
		res.DiskPercent = usage.UsedPercent
	}

	return res
}
