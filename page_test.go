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

func pattern(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i)*7 + seed
	}
	return p
}

func TestEmptyPageBitBudget(t *testing.T) {
	for _, tt := range []struct{ size, want int }{
		{1024, 40},
		{8192, 320},
		{16384, 640},
	} {
		if got := nfc.EmptyPageBitBudget(tt.size); got != tt.want {
			t.Errorf("EmptyPageBitBudget(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestPageIsEmpty(t *testing.T) {
	const size = 8192
	budget := nfc.EmptyPageBitBudget(size)

	withZeros := func(n int) []byte {
		p := bytes.Repeat([]byte{0xff}, size)
		// spread the zero bits so no byte loses more than one
		for i := range n {
			p[i*3%size] &^= 1 << (i % 8)
		}
		return p
	}

	tests := []struct {
		name  string
		zeros int
		want  bool
	}{
		{"erased", 0, true},
		{"one bit", 1, true},
		{"at budget", budget, true},
		{"over budget", budget + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nfc.PageIsEmpty(withZeros(tt.zeros)); got != tt.want {
				t.Errorf("PageIsEmpty with %d zero bits = %v, want %v", tt.zeros, got, tt.want)
			}
		})
	}

	p := bytes.Repeat([]byte{0xff}, size)
	p[100] = 0x00
	if !nfc.PageIsEmpty(p) {
		t.Error("page with one zero byte is not empty")
	}
	if nfc.PageIsEmpty(make([]byte, size)) {
		t.Error("zeroed page is empty")
	}
}

func TestReadPageRoundTrip(t *testing.T) {
	c, r := newController(t, testChip(), nil)

	const page = 0x1a
	data := pattern(c.PageSize(), 1)
	if err := c.ProgramPage(page, data); err != nil {
		t.Fatalf("ProgramPage: %v", err)
	}
	if !bytes.Equal(r.Chip.Page(page), data) {
		t.Fatal("chip holds different data")
	}
	if r.NFC.LastSeed != nfc.RandomSeed(page) {
		t.Errorf("program seed = %#x, want %#x", r.NFC.LastSeed, nfc.RandomSeed(page))
	}

	r.NFC.Log = nil
	got := make([]byte, c.PageSize())
	res, err := c.ReadPageWithRetry(page, got)
	if err != nil {
		t.Fatalf("ReadPageWithRetry: %v", err)
	}
	if res != (nfc.PageResult{Outcome: nfc.Success}) {
		t.Errorf("result = %+v", res)
	}
	if !bytes.Equal(got, data) {
		t.Error("read back different data")
	}
	if want := []uint8{0x00, 0x30}; !slices.Equal(r.NFC.Commands(), want) {
		t.Errorf("commands = % x, want % x", r.NFC.Commands(), want)
	}
	if len(r.Chip.Commits) != 0 {
		t.Errorf("%d read retry commits", len(r.Chip.Commits))
	}
	if want := uint32(reg.NFCBaseA10 + reg.IOData); r.DMA.LastDev != want {
		t.Errorf("DMA device address = %#x, want %#x", r.DMA.LastDev, want)
	}
	if r.NFC.LastSeed != nfc.RandomSeed(page) {
		t.Errorf("read seed = %#x, want %#x", r.NFC.LastSeed, nfc.RandomSeed(page))
	}
}

func TestReadPageCorrected(t *testing.T) {
	c, r := newController(t, testChip(), nil)
	r.Chip.Program(3, pattern(c.PageSize(), 2))

	tests := []struct {
		corrected int
		nearLimit int
	}{
		{0, 0},
		{12, 0},
		{35, 0},
		{36, 1}, // mode 4 corrects 40 bits
		{40, 1},
	}
	for _, tt := range tests {
		r.Chip.Fault = func(uint32, map[uint8]uint8) nfctest.Fault {
			return nfctest.Fault{Corrected: tt.corrected}
		}
		res, err := c.ReadPageWithRetry(3, make([]byte, c.PageSize()))
		if err != nil {
			t.Fatalf("%d bits: %v", tt.corrected, err)
		}
		if res.Corrected != tt.corrected || res.NearLimit != tt.nearLimit {
			t.Errorf("%d bits: result = %+v", tt.corrected, res)
		}
	}
}

// Steps 0 to 2 fail ECC and step 3 reads clean.
func TestReadPageRetryRecovers(t *testing.T) {
	c, r := newController(t, testChip(), nil)
	data := pattern(c.PageSize(), 4)
	r.Chip.Program(9, data)
	r.Chip.Fault = func(_ uint32, applied map[uint8]uint8) nfctest.Fault {
		return nfctest.Fault{Uncorrectable: applied[0x38] != 0x30}
	}

	got := make([]byte, c.PageSize())
	res, err := c.ReadPageWithRetry(9, got)
	if err != nil {
		t.Fatalf("ReadPageWithRetry: %v", err)
	}
	if res.Outcome != nfc.Success || res.Step != 3 {
		t.Errorf("result = %+v, want success at step 3", res)
	}
	if !bytes.Equal(got, data) {
		t.Error("read back different data")
	}
	if got, want := commitSteps(c.RetryPolicy(), r.Chip.Commits), []int{1, 2, 3, 0}; !slices.Equal(got, want) {
		t.Errorf("commits = %v, want %v", got, want)
	}
	if c.RetryStep() != 0 {
		t.Errorf("RetryStep() = %d after read", c.RetryStep())
	}
}

func TestReadPageRetryExhausted(t *testing.T) {
	c, r := newController(t, testChip(), nil)
	data := pattern(c.PageSize(), 5)
	r.Chip.Program(2, data)
	r.Chip.Fault = func(uint32, map[uint8]uint8) nfctest.Fault {
		return nfctest.Fault{Uncorrectable: true}
	}

	got := make([]byte, c.PageSize())
	res, err := c.ReadPageWithRetry(2, got)
	if !errors.Is(err, nfc.ErrRetryExhausted) {
		t.Fatalf("ReadPageWithRetry() = %v, want ErrRetryExhausted", err)
	}
	var perr *nfc.PageError
	if !errors.As(err, &perr) || perr.Page != 2 || perr.Step != 7 {
		t.Errorf("error = %#v", err)
	}
	if res.Outcome != nfc.ECCFailure || res.Step != 7 {
		t.Errorf("result = %+v", res)
	}
	if got, want := commitSteps(c.RetryPolicy(), r.Chip.Commits), []int{1, 2, 3, 4, 5, 6, 7, 0}; !slices.Equal(got, want) {
		t.Errorf("commits = %v, want %v", got, want)
	}
	if c.RetryStep() != 0 {
		t.Errorf("RetryStep() = %d after read", c.RetryStep())
	}
	if !bytes.Equal(got, data) {
		t.Error("dst doesn't hold the raw page")
	}

	if err := c.ReadPage(2, got); !errors.Is(err, nfc.ErrRetryExhausted) {
		t.Errorf("ReadPage() = %v", err)
	}
}

func TestReadPageNoRetry(t *testing.T) {
	p := testChip()
	p.Retry = nil
	c, r := newController(t, p, nil)
	r.Chip.Program(1, pattern(c.PageSize(), 6))
	r.Chip.Fault = func(uint32, map[uint8]uint8) nfctest.Fault {
		return nfctest.Fault{Uncorrectable: true}
	}

	res, err := c.ReadPageWithRetry(1, make([]byte, c.PageSize()))
	if !errors.Is(err, nfc.ErrRetryExhausted) || res.Step != 0 {
		t.Errorf("ReadPageWithRetry() = %+v, %v", res, err)
	}
	if want := []uint8{0x00, 0x30, 0x00, 0x30}; !slices.Equal(r.NFC.Commands(), want) {
		t.Errorf("commands = % x, want % x", r.NFC.Commands(), want)
	}
}

func TestReadPageSetupFails(t *testing.T) {
	c, r := newController(t, testChip(), nil)
	r.Chip.Program(1, pattern(c.PageSize(), 7))
	r.Chip.Fault = func(uint32, map[uint8]uint8) nfctest.Fault {
		return nfctest.Fault{Uncorrectable: true}
	}
	r.Chip.FailStatus = true

	res, err := c.ReadPageWithRetry(1, make([]byte, c.PageSize()))
	if !errors.Is(err, nfc.ErrRetrySetup) {
		t.Fatalf("ReadPageWithRetry() = %v, want ErrRetrySetup", err)
	}
	if res.Outcome != nfc.ECCFailure || res.Step != 0 {
		t.Errorf("result = %+v", res)
	}
	if c.RetryStep() != 0 {
		t.Errorf("RetryStep() = %d", c.RetryStep())
	}
}

func TestReadPageEmpty(t *testing.T) {
	budget := nfc.EmptyPageBitBudget(8192)
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
			got := make([]byte, c.PageSize())
			res, err := c.ReadPageWithRetry(40, got)
			if res.Outcome != tt.want {
				t.Fatalf("outcome = %v (%v), want %v", res.Outcome, err, tt.want)
			}
			if tt.want != nfc.ConfirmedEmpty {
				if !errors.Is(err, nfc.ErrRetryExhausted) {
					t.Errorf("err = %v", err)
				}
				return
			}
			if err != nil || res.Step != 0 {
				t.Errorf("result = %+v, %v", res, err)
			}
			if !bytes.Equal(got, bytes.Repeat([]byte{0xff}, len(got))) {
				t.Error("empty page not filled with 0xff")
			}
			if len(r.Chip.Commits) != 0 {
				t.Errorf("commits = %v", r.Chip.Commits)
			}
		})
	}
}

func TestReadPageShortBuffer(t *testing.T) {
	c, _ := newController(t, testChip(), nil)
	if _, err := c.ReadPageWithRetry(0, make([]byte, 100)); !errors.Is(err, nfc.ErrShortBuffer) {
		t.Errorf("ReadPageWithRetry() = %v", err)
	}
	if err := c.ProgramPage(0, make([]byte, 100)); !errors.Is(err, nfc.ErrShortBuffer) {
		t.Errorf("ProgramPage() = %v", err)
	}
}

func TestReadPageDMAError(t *testing.T) {
	c, r := newController(t, testChip(), nil)
	r.DMA.Err = nfc.ErrDMARequest
	if err := c.ReadPage(0, make([]byte, c.PageSize())); !errors.Is(err, nfc.ErrDMARequest) {
		t.Errorf("ReadPage() = %v", err)
	}
}

func TestProgramPageWriteProtect(t *testing.T) {
	wp := &gpiotest.Pin{N: "WP", L: gpio.Low}
	c, r := newController(t, testChip(), func(r *nfctest.Rig) { r.Chip.WP = wp }, nfc.WithWriteProtect(wp))

	data := pattern(c.PageSize(), 8)
	if err := c.ProgramPage(7, data); err != nil {
		t.Fatalf("ProgramPage: %v", err)
	}
	if wp.Read() != gpio.Low {
		t.Error("WP# left high")
	}
	if !bytes.Equal(r.Chip.Page(7), data) {
		t.Error("page not programmed")
	}
}

func TestProgramPageProtected(t *testing.T) {
	wp := &gpiotest.Pin{N: "WP", L: gpio.Low}
	c, r := newController(t, testChip(), func(r *nfctest.Rig) { r.Chip.WP = wp })

	err := c.ProgramPage(7, pattern(c.PageSize(), 9))
	var perr *nfc.PageError
	if !errors.Is(err, nfc.ErrProgramFailed) || !errors.As(err, &perr) || perr.Page != 7 {
		t.Errorf("ProgramPage() = %v, want ErrProgramFailed", err)
	}
	if r.Chip.Page(7) != nil {
		t.Error("protected page was programmed")
	}
}
