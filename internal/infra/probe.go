package infra

import (
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/focusfade/focusfade/internal/domain"
)

// ProcessProbe implements domain.CaptureProbe using gopsutil.
// It answers "is the capture service running on this host" plus a
// small host readout for /healthz and the status command.
type ProcessProbe struct {
	captureProcessName string
}

// NewProcessProbe creates a probe matching the given process name.
func NewProcessProbe(captureProcessName string) *ProcessProbe {
	return &ProcessProbe{captureProcessName: captureProcessName}
}

// IsCaptureRunning scans running processes for the capture service
// (case-insensitive substring match, same as process lookups elsewhere).
func (p *ProcessProbe) IsCaptureRunning() (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, err
	}

	patternLower := strings.ToLower(p.captureProcessName)
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue // Process may have exited
		}
		if strings.EqualFold(name, p.captureProcessName) ||
			strings.Contains(strings.ToLower(name), patternLower) {
			return true, nil
		}
	}
	return false, nil
}

// Snapshot returns capture-service and host health.
func (p *ProcessProbe) Snapshot() (domain.HostSnapshot, error) {
	snap := domain.HostSnapshot{}

	running, err := p.IsCaptureRunning()
	if err != nil {
		return snap, err
	}
	snap.CaptureRunning = running

	if count, err := cpu.Counts(true); err == nil {
		snap.CPUCount = count
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemUsedPercent = vm.UsedPercent
	}

	return snap, nil
}

// Ensure ProcessProbe implements domain.CaptureProbe.
var _ domain.CaptureProbe = (*ProcessProbe)(nil)
