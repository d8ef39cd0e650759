package nfc_test

import (
	"testing"

	"github.com/gentam/nfc"
)

func TestECCStrength(t *testing.T) {
	want := []int{16, 24, 28, 32, 40, 48, 56, 60, 64}
	for mode, bits := range want {
		if got := nfc.ECCStrength(mode); got != bits {
			t.Errorf("ECCStrength(%d) = %d, want %d", mode, got, bits)
		}
	}
	for _, mode := range []int{-1, 9, 15} {
		if got := nfc.ECCStrength(mode); got != 16 {
			t.Errorf("ECCStrength(%d) = %d, want 16", mode, got)
		}
	}
}

func TestRandomSeed(t *testing.T) {
	tests := []struct {
		page uint32
		want uint16
	}{
		{0, 0x2b75},
		{1, 0x0bd0},
		{127, 0x76db},
		{128, 0x2b75},
		{0x200 + 5, 0x07e9},
	}
	for _, tt := range tests {
		if got := nfc.RandomSeed(tt.page); got != tt.want {
			t.Errorf("RandomSeed(%d) = %#04x, want %#04x", tt.page, got, tt.want)
		}
	}
}
