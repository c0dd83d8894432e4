// Package tuner sizes rotsniff's worker pools from the host's CPU count and
// memory. Hashing is I/O bound, so the hash pool runs wider than the CPU
// count; walking is metadata bound and stays close to it.
package tuner

// Resources describes the host.
type Resources struct {
	CPUCores int

	// TotalRAM and AvailableRAM are in bytes. AvailableRAM may be an estimate.
	TotalRAM     int64
	AvailableRAM int64
}

// Pool limits.
const (
	minHashWorkers = 4
	maxHashWorkers = 64
	minWalkWorkers = 2
	maxWalkWorkers = 32

	// hashWorkerFootprint approximates the memory held by one in-flight
	// hash: read buffer, digest state and path bookkeeping.
	hashWorkerFootprint = 8 << 20
)

// Workers is the tuned pool sizing.
type Workers struct {
	// Hash bounds concurrent fingerprint computations and stats.
	Hash int

	// Walk is the number of directory traversal goroutines.
	Walk int
}

// Calculate derives pool sizes from r:
//   - Hash: 2 x CPU, within [4, 64], and never more than a quarter of
//     available memory divided by the per-worker footprint.
//   - Walk: CPU, within [2, 32].
func Calculate(r Resources) Workers {
	hash := clamp(r.CPUCores*2, minHashWorkers, maxHashWorkers)
	if r.AvailableRAM > 0 {
		byMem := int(r.AvailableRAM / 4 / hashWorkerFootprint)
		hash = max(min(hash, byMem), minHashWorkers)
	}

	return Workers{
		Hash: hash,
		Walk: clamp(r.CPUCores, minWalkWorkers, maxWalkWorkers),
	}
}

// CalculateWithOverride applies a user override to the hash pool. Zero or
// negative keeps the computed value. The walk pool is not overridden.
func CalculateWithOverride(r Resources, hashWorkers int) Workers {
	w := Calculate(r)
	if hashWorkers > 0 {
		w.Hash = min(hashWorkers, maxHashWorkers)
	}
	return w
}

// Auto detects the host and returns the tuned pool sizes. Detection
// failures fall back to CPU-only sizing.
func Auto(hashWorkers int) (Workers, Resources) {
	r, err := Detect()
	if err != nil {
		r.AvailableRAM = 0
	}
	return CalculateWithOverride(r, hashWorkers), r
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
