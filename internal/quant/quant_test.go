package quant

import (
	"math"
	"testing"
)

func TestFrequency_KnownValues(t *testing.T) {
	tests := []struct {
		raw  uint64
		want uint16
	}{
		{0, 0},
		{1, 301},
		{9, 1000},
		{50, 1707},
		{80, 1908},
		{99, 2000},
		{999, 3000},
		{10_000_000_000, Max},
		{math.MaxUint64, Max},
	}

	for _, tt := range tests {
		if got := Frequency(tt.raw); got != tt.want {
			t.Errorf("Frequency(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestFrequency_Monotonic(t *testing.T) {
	prev := Frequency(0)

	for raw := uint64(1); raw < 200_000; raw++ {
		got := Frequency(raw)
		if got < prev {
			t.Fatalf("Frequency(%d) = %d < Frequency(%d) = %d", raw, got, raw-1, prev)
		}

		prev = got
	}

	for raw := uint64(1); raw < math.MaxUint64/10; raw *= 10 {
		if Frequency(raw) > Frequency(raw*10) {
			t.Fatalf("Frequency(%d) > Frequency(%d)", raw, raw*10)
		}
	}
}

func TestFrequency_Decades(t *testing.T) {
	raw := uint64(1)
	for k := uint16(1); k <= 10; k++ {
		raw *= 10
		if got := Frequency(raw - 1); got != k*1000 {
			t.Errorf("Frequency(%d) = %d, want %d", raw-1, got, k*1000)
		}
	}
}
