package models

import "time"

// ServerInfoResponse represents the server info response
type ServerInfoResponse struct {
	Uptime       float64         `json:"uptime"`
	IdleTime     float64         `json:"idle_time"`
	Analyses     int64           `json:"analyses"`
	Failures     int64           `json:"failures"`
	LastAnalysis *time.Time      `json:"last_analysis,omitempty"`
	Resources    SystemResources `json:"resources"`
}

// SystemResources represents process and scratch-disk resource usage
type SystemResources struct {
	CPUCount      int     `json:"cpu_count"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryRSS     uint64  `json:"memory_rss"`
	MemoryPercent float32 `json:"memory_percent"`
	ScratchDir    string  `json:"scratch_dir"`
	DiskTotal     uint64  `json:"disk_total"`
	DiskUsed      uint64  `json:"disk_used"`
	DiskFree      uint64  `json:"disk_free"`
	DiskPercent   float64 `json:"disk_percent"`
}
