//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect reads CPU count from the runtime and memory from hw.memsize.
// macOS does not expose a cheap free-memory figure, so half of physical
// memory is assumed available.
func Detect() (Resources, error) {
	r := Resources{CPUCores: runtime.NumCPU()}

	total, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return r, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	r.TotalRAM = int64(total)
	r.AvailableRAM = r.TotalRAM / 2
	return r, nil
}
