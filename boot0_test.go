package nfc_test

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/gentam/nfc"
	"github.com/gentam/nfc/internal/reg"
	"github.com/gentam/nfc/nfctest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func mode1KRegs(n *nfctest.NFC) [3]uint32 {
	return [3]uint32{n.Read32(reg.CTL), n.Read32(reg.ECCCTL), n.Read32(reg.SpareArea)}
}

func TestPage1KRoundTrip(t *testing.T) {
	wp := &gpiotest.Pin{N: "WP", L: gpio.Low}
	c, r := newController(t, testChip(), func(r *nfctest.Rig) { r.Chip.WP = wp }, nfc.WithWriteProtect(wp))
	saved := mode1KRegs(r.NFC)

	data := pattern(nfc.Boot0PageSize, 11)
	if err := c.ProgramPage1K(3, data); err != nil {
		t.Fatalf("ProgramPage1K: %v", err)
	}
	if wp.Read() != gpio.Low {
		t.Error("WP# left high")
	}
	page := r.Chip.Page(3)
	if !bytes.Equal(page[:nfc.Boot0PageSize], data) {
		t.Error("boot0 data not programmed")
	}
	if !bytes.Equal(page[nfc.Boot0PageSize:], bytes.Repeat([]byte{0xff}, len(page)-nfc.Boot0PageSize)) {
		t.Error("rest of the page not erased")
	}
	if got := mode1KRegs(r.NFC); got != saved {
		t.Errorf("registers after program = %#x, want %#x", got, saved)
	}

	r.NFC.Log = nil
	got := make([]byte, nfc.Boot0PageSize)
	res, err := c.ReadPage1K(3, got)
	if err != nil || res.Outcome != nfc.Success {
		t.Fatalf("ReadPage1K() = %+v, %v", res, err)
	}
	if !bytes.Equal(got, data) {
		t.Error("read back differs")
	}
	if ops := r.NFC.Commands(); !slices.Equal(ops, []uint8{0x00, 0x30}) {
		t.Errorf("commands = % x", ops)
	}
	if r.NFC.LastSeed != 0x4a80 {
		t.Errorf("seed = %#x, want 0x4a80", r.NFC.LastSeed)
	}
	if n := r.NFC.Read32(reg.SectorNum); n != 1 {
		t.Errorf("sectors = %d, want 1", n)
	}
	if r.NFC.LastCTL&reg.CtlPageSize != 0 {
		t.Errorf("CTL during transfer = %#x, page size field set", r.NFC.LastCTL)
	}
	if mode := r.NFC.LastECCCTL & reg.ECCMode >> reg.ECCModeShift; mode != 8 {
		t.Errorf("ECC mode during transfer = %d, want 8", mode)
	}
	if got := mode1KRegs(r.NFC); got != saved {
		t.Errorf("registers after read = %#x, want %#x", got, saved)
	}

	// The full page read is back to the per-page seed.
	if err := c.ReadPage(3, make([]byte, c.PageSize())); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if want := nfc.RandomSeed(3); r.NFC.LastSeed != want {
		t.Errorf("seed = %#x, want %#x", r.NFC.LastSeed, want)
	}
}

func TestReadPage1KEmpty(t *testing.T) {
	budget := nfc.EmptyPageBitBudget(nfc.Boot0PageSize)
	tests := []struct {
		name  string
		flips int
		want  nfc.Outcome
	}{
		{"clean", 0, nfc.ConfirmedEmpty},
		{"at budget", budget, nfc.ConfirmedEmpty},
		{"over budget", budget + 1, nfc.ECCFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, r := newController(t, testChip(), func(r *nfctest.Rig) {
				r.Chip.RawFlips = tt.flips
			})
			saved := mode1KRegs(r.NFC)
			got := make([]byte, nfc.Boot0PageSize)
			res, err := c.ReadPage1K(9, got)
			if res.Outcome != tt.want {
				t.Fatalf("outcome = %v (%v), want %v", res.Outcome, err, tt.want)
			}
			if tt.want == nfc.ConfirmedEmpty {
				if err != nil {
					t.Errorf("err = %v", err)
				}
				if !bytes.Equal(got, bytes.Repeat([]byte{0xff}, len(got))) {
					t.Error("empty page not filled with 0xff")
				}
			} else if !errors.Is(err, nfc.ErrECCUncorrectable) {
				t.Errorf("err = %v, want ErrECCUncorrectable", err)
			}
			if got := mode1KRegs(r.NFC); got != saved {
				t.Errorf("registers = %#x, want %#x", got, saved)
			}
		})
	}
}

func TestReadPage1KFailure(t *testing.T) {
	c, r := newController(t, testChip(), nil)
	data := pattern(nfc.Boot0PageSize, 12)
	if err := c.ProgramPage1K(5, data); err != nil {
		t.Fatalf("ProgramPage1K: %v", err)
	}
	r.Chip.Fault = func(uint32, map[uint8]uint8) nfctest.Fault {
		return nfctest.Fault{Uncorrectable: true}
	}

	got := make([]byte, nfc.Boot0PageSize)
	res, err := c.ReadPage1K(5, got)
	var perr *nfc.PageError
	if !errors.As(err, &perr) || perr.Page != 5 || !errors.Is(err, nfc.ErrECCUncorrectable) {
		t.Fatalf("ReadPage1K() = %v", err)
	}
	if res.Outcome != nfc.ECCFailure {
		t.Errorf("outcome = %v", res.Outcome)
	}
	if !bytes.Equal(got, data) {
		t.Error("raw data not returned")
	}
	if len(r.Chip.Commits) != 0 {
		t.Errorf("read retry used in 1KiB mode: %v", r.Chip.Commits)
	}
}

func TestPage1KErrors(t *testing.T) {
	c, r := newController(t, testChip(), nil)
	if _, err := c.ReadPage1K(0, make([]byte, 100)); !errors.Is(err, nfc.ErrShortBuffer) {
		t.Errorf("ReadPage1K() = %v", err)
	}
	if err := c.ProgramPage1K(0, make([]byte, 100)); !errors.Is(err, nfc.ErrShortBuffer) {
		t.Errorf("ProgramPage1K() = %v", err)
	}

	r.Chip.FailStatus = true
	if err := c.ProgramPage1K(0, pattern(nfc.Boot0PageSize, 1)); !errors.Is(err, nfc.ErrProgramFailed) {
		t.Errorf("ProgramPage1K() = %v, want ErrProgramFailed", err)
	}

	u, err := nfc.New(r.NFC, r.DMA, r.Buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := u.ReadPage1K(0, make([]byte, nfc.Boot0PageSize)); !errors.Is(err, nfc.ErrNotInitialized) {
		t.Errorf("ReadPage1K() before Init = %v", err)
	}
	if err := u.ProgramPage1K(0, make([]byte, nfc.Boot0PageSize)); !errors.Is(err, nfc.ErrNotInitialized) {
		t.Errorf("ProgramPage1K() before Init = %v", err)
	}
}
