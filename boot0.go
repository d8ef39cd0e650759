package nfc

import (
	"errors"

	"github.com/gentam/nfc/internal/reg"
	"github.com/golang/glog"
)

// The boot ROM reads boot0 (the SPL) in 1KiB mode regardless of the chip's
// page size: one 1KiB sector at the start of each page, 64-bit ECC and a
// fixed randomizer seed. [A10-UM|NFC Boot]
const (
	Boot0PageSize = reg.RAM0Size
	boot0ECCMode  = 8
	boot0Seed     = 0x4a80
)

const (
	boot0ReadCmd    = readPageCmd | reg.CmdSeq
	boot0ProgramCmd = programPageCmd | reg.CmdSeq
)

// mode1K holds the registers changed by 1KiB mode.
type mode1K struct {
	ctl, eccCtl, spare uint32
}

func (c *Controller) enter1K() mode1K {
	m := mode1K{
		ctl:    c.bus.Read32(reg.CTL),
		eccCtl: c.bus.Read32(reg.ECCCTL),
		spare:  c.bus.Read32(reg.SpareArea),
	}
	c.bus.Write32(reg.CTL, m.ctl&^reg.CtlPageSize)
	c.setECCMode(boot0ECCMode)
	c.bus.Write32(reg.SpareArea, Boot0PageSize)
	return m
}

func (c *Controller) exit1K(m mode1K) {
	c.bus.Write32(reg.CTL, m.ctl)
	c.bus.Write32(reg.ECCCTL, m.eccCtl)
	c.bus.Write32(reg.SpareArea, m.spare)
}

// read1K reads the first 1KiB of page into the page buffer. The caller
// must be in 1KiB mode.
func (c *Controller) read1K(page uint32, raw bool) (ECCStatus, error) {
	c.ahb(false)
	if err := c.startDMA(DeviceToMemory, Boot0PageSize); err != nil {
		return ECCStatus{}, err
	}
	c.setAddr(0, page)
	c.bus.Write32(reg.CNT, Boot0PageSize)
	c.bus.Write32(reg.RCMDSet, reg.DefaultRCMDSet)
	c.bus.Write32(reg.SectorNum, 1)
	if !raw {
		c.enableRandomSeed(boot0Seed)
		c.enableECC()
	}
	c.bus.Write32(reg.CMD, boot0ReadCmd)
	c.soft(c.waitDMA())
	c.complete()
	if raw {
		return ECCStatus{}, nil
	}
	c.disableECC()
	defer c.disableRandomizer()
	return c.checkECC(1)
}

// ReadPage1K reads the first Boot0PageSize bytes of page as the boot ROM
// does. There is no read retry in this mode; an erased page reads as 0xFF.
func (c *Controller) ReadPage1K(page uint32, dst []byte) (PageResult, error) {
	if c.chip == nil {
		return PageResult{}, ErrNotInitialized
	}
	if len(dst) < Boot0PageSize {
		return PageResult{}, ErrShortBuffer
	}
	buf := c.buf.Bytes()[:Boot0PageSize]

	c.waitCmdFIFO()
	m := c.enter1K()
	defer c.exit1K(m)

	res := PageResult{Step: c.rr.step}
	ecc, err := c.read1K(page, false)
	if err == nil {
		copy(dst, buf)
		res.Corrected, res.NearLimit = ecc.Corrected, ecc.NearLimit
		return res, nil
	}
	if errors.Is(err, ErrECCUncorrectable) {
		if _, rawErr := c.read1K(page, true); rawErr != nil {
			err = rawErr
		} else if PageIsEmpty(buf) {
			for i := range dst[:Boot0PageSize] {
				dst[i] = 0xff
			}
			res.Outcome = ConfirmedEmpty
			return res, nil
		}
	}
	glog.Errorf("boot0 read failed @%#x: %v", page, err)
	copy(dst, buf)
	res.Outcome = ECCFailure
	return res, &PageError{Page: page, Step: res.Step, Err: err}
}

// ProgramPage1K writes the first Boot0PageSize bytes of src to page in the
// layout ReadPage1K expects. The rest of the page stays erased.
func (c *Controller) ProgramPage1K(page uint32, src []byte) error {
	if c.chip == nil {
		return ErrNotInitialized
	}
	if len(src) < Boot0PageSize {
		return ErrShortBuffer
	}
	return c.withWriteEnabled(func() error {
		copy(c.buf.Bytes(), src[:Boot0PageSize])
		c.waitCmdFIFO()
		m := c.enter1K()
		defer c.exit1K(m)

		c.ahb(false)
		if err := c.startDMA(MemoryToDevice, Boot0PageSize); err != nil {
			return err
		}
		c.setAddr(0, page)
		c.bus.Write32(reg.CNT, Boot0PageSize)
		c.bus.Write32(reg.WCMDSet, reg.DefaultWCMDSet)
		c.bus.Write32(reg.SectorNum, 1)
		c.enableRandomSeed(boot0Seed)
		c.enableECC()
		c.bus.Write32(reg.CMD, boot0ProgramCmd)
		c.soft(c.waitDMA())
		c.complete()
		c.disableECC()
		c.disableRandomizer()

		if st := c.readStatus(); st.Fail() {
			return &PageError{Page: page, Step: c.rr.step, Err: ErrProgramFailed}
		}
		glog.V(1).Infof("programmed boot0 page %#x", page)
		return nil
	})
}
