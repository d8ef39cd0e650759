package nfc

import (
	"errors"
	"math/bits"

	"github.com/gentam/nfc/internal/reg"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
)

// Outcome of a page read.
type Outcome int

const (
	Success        Outcome = iota // ECC passed
	ConfirmedEmpty                // erased page, returned as 0xFF
	ECCFailure                    // no retry step recovered the page
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ConfirmedEmpty:
		return "empty"
	case ECCFailure:
		return "ECC failure"
	}
	return "unknown"
}

// PageResult describes how a page read ended.
type PageResult struct {
	Outcome   Outcome
	Corrected int // bit errors corrected by ECC
	NearLimit int // sectors within 4 bits of the ECC strength
	Step      int // read-retry step of the final attempt
}

// emptyBitsPerKiB is the number of zero bits per 1KiB tolerated in an
// erased page, the strength of 40-bit/1KiB ECC.
const emptyBitsPerKiB = 40

// EmptyPageBitBudget returns how many zero bits an erased page of pageSize
// bytes may contain.
func EmptyPageBitBudget(pageSize int) int { return pageSize / 1024 * emptyBitsPerKiB }

// PageIsEmpty reports whether a raw page reads as erased: all 0xFF except
// for at most EmptyPageBitBudget(len(p)) zero bits.
func PageIsEmpty(p []byte) bool {
	budget := EmptyPageBitBudget(len(p))
	zeros := 0
	for _, b := range p {
		if b == 0xff {
			continue
		}
		zeros += 8 - bits.OnesCount8(b)
		if zeros > budget {
			return false
		}
	}
	return true
}

func (c *Controller) sectors() int { return c.chip.PageSize() / 1024 }

// readPage reads page into the page buffer by DMA. Unless raw, the data
// goes through the randomizer and the ECC engine.
func (c *Controller) readPage(page uint32, raw bool) (ECCStatus, error) {
	c.waitCmdFIFO()
	c.ahb(false)
	if err := c.startDMA(DeviceToMemory, c.chip.PageSize()); err != nil {
		return ECCStatus{}, err
	}
	c.setAddr(0, page)
	c.bus.Write32(reg.RCMDSet, reg.DefaultRCMDSet)
	c.bus.Write32(reg.CNT, reg.RAM0Size)
	c.bus.Write32(reg.SectorNum, uint32(c.sectors()))
	if !raw {
		c.enableRandomizer(page)
		c.enableECC()
	}
	c.bus.Write32(reg.CMD, readPageCmd)
	c.soft(c.waitDMA())
	c.complete()
	if raw {
		return ECCStatus{}, nil
	}
	c.disableECC()
	c.disableRandomizer()
	return c.checkECC(c.sectors())
}

// ReadPageWithRetry reads page into dst, sweeping the chip's read-retry
// steps in order until one passes ECC or the page proves to be erased.
//
// On failure the returned error is a *PageError wrapping ErrRetryExhausted
// (or the step setup error) and dst holds the last raw read. The chip is
// back at step 0 when ReadPageWithRetry returns.
func (c *Controller) ReadPageWithRetry(page uint32, dst []byte) (PageResult, error) {
	if c.chip == nil {
		return PageResult{}, ErrNotInitialized
	}
	n := c.chip.PageSize()
	if len(dst) < n {
		return PageResult{}, ErrShortBuffer
	}
	buf := c.buf.Bytes()[:n]

	var (
		res  PageResult
		fail error
		step int
	)
	for {
		res.Step = step
		ecc, err := c.readPage(page, false)
		if err == nil {
			copy(dst, buf)
			res.Outcome = Success
			res.Corrected, res.NearLimit = ecc.Corrected, ecc.NearLimit
			break
		}
		if !errors.Is(err, ErrECCUncorrectable) {
			fail = err
			break
		}

		if _, err := c.readPage(page, true); err != nil {
			fail = err
			break
		}
		if PageIsEmpty(buf) {
			for i := range dst[:n] {
				dst[i] = 0xff
			}
			res.Outcome = ConfirmedEmpty
			break
		}
		glog.Warningf("ECC error @%#x (retry step %d)", page, step)

		step++
		if step >= c.rr.policy.Steps {
			fail = ErrRetryExhausted
			break
		}
		if err := c.rr.setup(step); err != nil {
			fail = err
			break
		}
	}

	if step != 0 {
		if err := c.rr.setup(0); err != nil {
			glog.Errorf("failed to restore read retry step 0: %v", err)
		}
	}
	if fail != nil {
		glog.Errorf("reads failed @%#x: %v", page, fail)
		copy(dst, buf)
		res.Outcome = ECCFailure
		return res, &PageError{Page: page, Step: res.Step, Err: fail}
	}
	return res, nil
}

// ReadPage reads page into dst. Erased pages read as 0xFF.
func (c *Controller) ReadPage(page uint32, dst []byte) error {
	_, err := c.ReadPageWithRetry(page, dst)
	return err
}

// withWriteEnabled releases WP# around fn when a write-protect pin is
// configured.
func (c *Controller) withWriteEnabled(fn func() error) (err error) {
	if wp := c.cfg.WriteProtect; wp != nil {
		if err = wp.Out(gpio.High); err != nil {
			return err
		}
		defer func() {
			if wpErr := wp.Out(gpio.Low); wpErr != nil && err == nil {
				err = wpErr
			}
		}()
	}
	return fn()
}

// ProgramPage writes src to page with ECC and the randomizer. The spare
// area user data is left erased. The page must have been erased before.
func (c *Controller) ProgramPage(page uint32, src []byte) error {
	if c.chip == nil {
		return ErrNotInitialized
	}
	n := c.chip.PageSize()
	if len(src) < n {
		return ErrShortBuffer
	}
	return c.withWriteEnabled(func() error { return c.programPage(page, src[:n]) })
}

func (c *Controller) programPage(page uint32, src []byte) error {
	copy(c.buf.Bytes(), src)
	c.waitCmdFIFO()
	c.ahb(false)
	if err := c.startDMA(MemoryToDevice, len(src)); err != nil {
		return err
	}
	c.setAddr(0, page)
	for i := range c.sectors() {
		c.bus.Write32(reg.UserData(i), 0xffffffff)
	}
	c.bus.Write32(reg.WCMDSet, reg.DefaultWCMDSet)
	c.bus.Write32(reg.CNT, reg.RAM0Size)
	c.bus.Write32(reg.SectorNum, uint32(c.sectors()))
	c.enableRandomizer(page)
	c.enableECC()
	c.bus.Write32(reg.CMD, programPageCmd)
	c.soft(c.waitDMA())
	c.complete()
	c.disableECC()
	c.disableRandomizer()

	if st := c.readStatus(); st.Fail() {
		return &PageError{Page: page, Step: c.rr.step, Err: ErrProgramFailed}
	}
	glog.V(1).Infof("programmed page %#x", page)
	return nil
}
