//go:build !linux && !darwin

package tuner

import "runtime"

const assumedRAM = 8 << 30

// Detect reports the CPU count and an assumed 8 GiB of memory.
func Detect() (Resources, error) {
	return Resources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     assumedRAM,
		AvailableRAM: assumedRAM / 2,
	}, nil
}
