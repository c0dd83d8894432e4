package tuner

import (
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	r, err := Detect()
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if r.CPUCores != runtime.NumCPU() {
		t.Errorf("CPUCores = %d, want %d", r.CPUCores, runtime.NumCPU())
	}
	if r.TotalRAM <= 0 {
		t.Errorf("TotalRAM = %d, want > 0", r.TotalRAM)
	}
	if r.AvailableRAM < 0 || r.AvailableRAM > r.TotalRAM {
		t.Errorf("AvailableRAM = %d, want within [0, %d]", r.AvailableRAM, r.TotalRAM)
	}
}

const gib = 1 << 30

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		r        Resources
		wantHash int
		wantWalk int
	}{
		{name: "single core", r: Resources{CPUCores: 1, AvailableRAM: 4 * gib}, wantHash: 4, wantWalk: 2},
		{name: "laptop", r: Resources{CPUCores: 8, AvailableRAM: 8 * gib}, wantHash: 16, wantWalk: 8},
		{name: "large server", r: Resources{CPUCores: 128, AvailableRAM: 256 * gib}, wantHash: 64, wantWalk: 32},
		{name: "memory starved", r: Resources{CPUCores: 16, AvailableRAM: 256 << 20}, wantHash: 8, wantWalk: 16},
		{name: "tiny memory keeps floor", r: Resources{CPUCores: 16, AvailableRAM: 16 << 20}, wantHash: 4, wantWalk: 16},
		{name: "unknown memory", r: Resources{CPUCores: 4}, wantHash: 8, wantWalk: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.r)
			if got.Hash != tt.wantHash {
				t.Errorf("Hash = %d, want %d", got.Hash, tt.wantHash)
			}
			if got.Walk != tt.wantWalk {
				t.Errorf("Walk = %d, want %d", got.Walk, tt.wantWalk)
			}
		})
	}
}

func TestCalculateWithOverride(t *testing.T) {
	r := Resources{CPUCores: 8, AvailableRAM: 8 * gib}

	tests := []struct {
		name     string
		override int
		want     int
	}{
		{name: "zero keeps computed", override: 0, want: 16},
		{name: "negative keeps computed", override: -3, want: 16},
		{name: "explicit", override: 3, want: 3},
		{name: "capped", override: 500, want: maxHashWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateWithOverride(r, tt.override)
			if got.Hash != tt.want {
				t.Errorf("Hash = %d, want %d", got.Hash, tt.want)
			}
			if got.Walk != 8 {
				t.Errorf("Walk = %d, want 8", got.Walk)
			}
		})
	}
}

func TestAuto(t *testing.T) {
	w, r := Auto(0)
	if r.CPUCores <= 0 {
		t.Fatalf("CPUCores = %d", r.CPUCores)
	}
	if w.Hash < minHashWorkers || w.Hash > maxHashWorkers {
		t.Errorf("Hash = %d, out of bounds", w.Hash)
	}
	if w.Walk < minWalkWorkers || w.Walk > maxWalkWorkers {
		t.Errorf("Walk = %d, out of bounds", w.Walk)
	}

	w, _ = Auto(5)
	if w.Hash != 5 {
		t.Errorf("Auto(5).Hash = %d, want 5", w.Hash)
	}
}
