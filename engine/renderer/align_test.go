package renderer

import "testing"

func TestAlignUp(t *testing.T) {
	tests := []struct {
		size, unit, want uint32
	}{
		{0, 256, 0},
		{1, 256, 256},
		{100, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{20, 16, 32},
		{48, 16, 48},
		{7, 1, 7},
		{7, 0, 7},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.size, tt.unit); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.size, tt.unit, got, tt.want)
		}
	}
}

func TestAlignUpIsSmallestMultiple(t *testing.T) {
	for _, unit := range []uint64{1, 4, 16, 64, 256, 1000} {
		for size := uint64(0); size < 3*unit; size++ {
			got := AlignUp(size, unit)
			if got%unit != 0 || got < size || got-size >= unit {
				t.Fatalf("AlignUp(%d, %d) = %d", size, unit, got)
			}
		}
	}
}
