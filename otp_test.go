package nfc_test

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/gentam/nfc"
	"github.com/gentam/nfc/nfctest"
)

// otpImage builds an OTP dump for l holding tables[i] in copy i. Copies
// beyond len(tables) repeat the last table.
func otpImage(l *nfc.OTPLayout, tables ...[]byte) []byte {
	img := append(bytes.Repeat([]byte{byte(l.Steps)}, 8), bytes.Repeat([]byte{byte(len(l.Registers))}, 8)...)
	for i := range l.Copies {
		tbl := tables[min(i, len(tables)-1)]
		img = append(img, tbl...)
		for _, b := range tbl {
			img = append(img, ^b)
		}
	}
	return img
}

func otpTable(l *nfc.OTPLayout, seed byte) []byte {
	t := make([]byte, l.Steps*len(l.Registers))
	for i := range t {
		t[i] = byte(i) + seed
	}
	return t
}

func TestOTPParse(t *testing.T) {
	for _, l := range []*nfc.OTPLayout{nfc.OTPH27UCG8T2A, nfc.OTPH27UCG8T2E} {
		t.Run(l.Name, func(t *testing.T) {
			tbl := otpTable(l, 0x10)
			p, err := l.Parse(otpImage(l, tbl))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if err := p.Validate(); err != nil {
				t.Fatal(err)
			}
			if p.Steps != l.Steps || !slices.Equal(p.Registers, l.Registers) || !slices.Equal(p.Values, tbl) {
				t.Errorf("policy = %+v", p)
			}
		})
	}
}

func TestOTPLayoutSize(t *testing.T) {
	if got := nfc.OTPH27UCG8T2A.Size(); got != 16+8*128 {
		t.Errorf("T2A size = %d", got)
	}
	if got := nfc.OTPH27UCG8T2E.Size(); got != 16+8*64 {
		t.Errorf("T2E size = %d", got)
	}
}

// A copy with a single byte disagreeing with its inverse is skipped.
func TestOTPParseSkipsBadCopy(t *testing.T) {
	l := nfc.OTPH27UCG8T2E
	good := otpTable(l, 0x40)
	img := otpImage(l, otpTable(l, 0x80), good)

	n := l.Steps * len(l.Registers)
	img[16+n+5] = 0x00 // inverse of copy 0, byte 5
	p, err := l.Parse(img)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !slices.Equal(p.Values, good) {
		t.Errorf("Values = % x, want copy 1 % x", p.Values, good)
	}
}

func TestOTPParseErrors(t *testing.T) {
	l := nfc.OTPH27UCG8T2E
	n := l.Steps * len(l.Registers)

	allBad := otpImage(l, otpTable(l, 0))
	for i := range l.Copies {
		allBad[16+i*2*n+n] = 0x00
	}

	minority := otpImage(l, otpTable(l, 0))
	for i := range 4 {
		minority[i] = 0xff
	}
	majority := otpImage(l, otpTable(l, 0))
	for i := range 3 {
		majority[8+i] = 0x00
	}

	tests := []struct {
		name string
		img  []byte
		ok   bool
	}{
		{"erased", bytes.Repeat([]byte{0xff}, l.Size()), false},
		{"short", otpImage(l, otpTable(l, 0))[:l.Size()-1], false},
		{"all copies bad", allBad, false},
		{"4 of 8 step counts", minority, false},
		{"5 of 8 register counts", majority, true},
	}
	for _, tt := range tests {
		_, err := l.Parse(tt.img)
		if tt.ok && err != nil {
			t.Errorf("%s: Parse() = %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, nfc.ErrOTPCorrupt) {
			t.Errorf("%s: Parse() = %v, want ErrOTPCorrupt", tt.name, err)
		}
	}
}

func knownChip(t *testing.T, name string) nfc.ChipParams {
	t.Helper()
	for _, p := range nfc.KnownChips() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no chip %q", name)
	return nfc.ChipParams{}
}

func TestInitLoadsOTP(t *testing.T) {
	p := knownChip(t, "Hynix H27UCG8T2E 64Gb")
	tbl := otpTable(p.OTP, 0x21)

	r := nfctest.NewRig(p)
	r.Chip.OTP = otpImage(p.OTP, tbl)
	c, err := nfc.New(r.NFC, r.DMA, r.Buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := c.RetryPolicy(); got.Steps != 8 || !slices.Equal(got.Values, tbl) {
		t.Errorf("RetryPolicy() = %+v, want OTP table", got)
	}

	want := []uint8{
		0xff, 0x90, // reset, read ID
		0xff, 0x36, 0x16, 0x17, 0x04, 0x19, 0x00, 0x30, // enter OTP, read page 0x200
		0xff, 0x36, 0x00, 0x30, // leave OTP, dummy read
	}
	if got := r.NFC.Commands(); !slices.Equal(got, want) {
		t.Errorf("commands = % x, want % x", got, want)
	}
}

func TestInitOTPFallback(t *testing.T) {
	p := knownChip(t, "Hynix H27UCG8T2E 64Gb")
	r := nfctest.NewRig(p)
	c, err := nfc.New(r.NFC, r.DMA, r.Buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := c.RetryPolicy()
	if got.Steps != 8 || !slices.Equal(got.StepValues(1), []uint8{0x02, 0x02, 0xfe, 0xfd}) {
		t.Errorf("RetryPolicy() = %+v, want static table", got)
	}

	p = knownChip(t, "Hynix H27UCG8T2A 64Gb")
	r = nfctest.NewRig(p)
	if c, err = nfc.New(r.NFC, r.DMA, r.Buf); err != nil {
		t.Fatal(err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := c.RetryPolicy(); got.Steps != 1 || len(got.Registers) != 0 {
		t.Errorf("RetryPolicy() = %+v, want NoRetry", got)
	}
}

func TestInitLoadsOTPT2A(t *testing.T) {
	p := knownChip(t, "Hynix H27UCG8T2A 64Gb")
	tbl := otpTable(p.OTP, 0x03)

	r := nfctest.NewRig(p)
	r.Chip.OTP = otpImage(p.OTP, tbl)
	c, err := nfc.New(r.NFC, r.DMA, r.Buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := c.RetryPolicy(); !slices.Equal(got.Values, tbl) || !slices.Equal(got.Registers, p.OTP.Registers) {
		t.Errorf("RetryPolicy() = %+v", got)
	}
	// 0x36 @0xff <- 0x40, then @0xcc <- 0x4d without a command
	if got := r.Chip.Commits[0]; got[0xff] != 0x40 || got[0xcc] != 0x4d {
		t.Errorf("OTP entry parameters = %v", got)
	}
}
