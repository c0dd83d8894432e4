//go:build linux

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect reads CPU count from the runtime and memory from sysinfo(2).
func Detect() (Resources, error) {
	r := Resources{CPUCores: runtime.NumCPU()}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return r, fmt.Errorf("sysinfo: %w", err)
	}
	unit := int64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	r.TotalRAM = int64(info.Totalram) * unit
	r.AvailableRAM = (int64(info.Freeram) + int64(info.Bufferram)) * unit
	if r.AvailableRAM > r.TotalRAM {
		r.AvailableRAM = r.TotalRAM
	}
	return r, nil
}
