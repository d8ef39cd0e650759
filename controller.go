package nfc

import (
	"fmt"

	"github.com/gentam/nfc/internal/reg"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"
)

// initialClock is the NAND bus clock used until the chip is identified.
const initialClock = 10 * physic.MegaHertz

// Controller drives a sunxi NAND flash controller and the chip on CE0.
//
// A Controller is not safe for concurrent use: the register block, the DMA
// channel and the page buffer are shared by every operation.
type Controller struct {
	bus Bus
	dma DMA
	buf Buffer
	cfg Config

	dmaActive bool

	id   [8]byte
	chip *ChipParams
	rr   retryController
}

// New returns a Controller using bus for the NFC registers, dma for page
// transfers and buf as the page buffer. The chip is left untouched until
// Init.
func New(bus Bus, dma DMA, buf Buffer, opts ...Option) (*Controller, error) {
	if dma == nil {
		return nil, fmt.Errorf("no DMA channel: %w", ErrDMARequest)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Controller{bus: bus, dma: dma, buf: buf, cfg: cfg}
	c.rr = retryController{c: c, policy: NoRetry}
	return c, nil
}

func (c *Controller) setRate(f physic.Frequency) error {
	if c.cfg.SetRate == nil {
		return nil
	}
	if err := c.cfg.SetRate(f); err != nil {
		return fmt.Errorf("failed to set NFC clock to %v: %w", f, err)
	}
	return nil
}

// Init resets the controller and the chip, identifies the chip and
// configures the controller for it.
func (c *Controller) Init() error {
	c.chip = nil
	if err := c.setRate(initialClock); err != nil {
		return err
	}

	c.bus.Write32(reg.CTL, c.bus.Read32(reg.CTL)|reg.CtlReset)
	if err := c.busyWait("controller reset", c.cfg.Timeouts.Reset, func() bool {
		return c.bus.Read32(reg.CTL)&reg.CtlReset == 0
	}); err != nil {
		return err
	}
	c.bus.Write32(reg.CTL, reg.CtlEnable)
	c.bus.Write32(reg.TimingCTL, 1<<8) // serial access mode 1

	c.Reset()
	c.id = c.ReadID()

	chip, ok := LookupChip(c.cfg.Chips, c.id)
	if !ok {
		return &UnknownChipError{ID: c.id}
	}
	glog.Infof("NAND: %s (ID % x)", chip.Name, chip.ID)

	if chip.PageShift < 10 || chip.PageShift > 14 {
		return fmt.Errorf("%s: page shift %d out of range: %w", chip.Name, chip.PageShift, ErrInvalidChipTable)
	}
	if len(c.buf.Bytes()) < chip.PageSize() {
		return fmt.Errorf("%d byte page buffer for %d byte pages: %w", len(c.buf.Bytes()), chip.PageSize(), ErrShortBuffer)
	}

	rate := c.cfg.MaxClock
	if chip.MaxClock > 0 && chip.MaxClock < rate {
		rate = chip.MaxClock
	}
	if err := c.setRate(rate); err != nil {
		return err
	}

	c.bus.Write32(reg.INT, 0)
	c.bus.Write32(reg.ST, c.bus.Read32(reg.ST))
	c.setECCMode(chip.ECCMode)
	c.bus.Write32(reg.CTL, reg.CtlEnable|uint32(chip.PageShift-10)<<reg.CtlPageShift&reg.CtlPageSize)
	c.bus.Write32(reg.TimingCFG, 0xff)
	c.bus.Write32(reg.SpareArea, uint32(chip.PageSize())+4) // bad block marker
	c.disableRandomizer()
	c.selectChip(0)

	policy, err := c.retryPolicy(&chip)
	if err != nil {
		return err
	}
	c.rr = retryController{c: c, policy: policy}
	c.chip = &chip
	return nil
}

// retryPolicy builds the read-retry policy of chip: the OTP table when the
// chip has one, else its static table, else NoRetry.
func (c *Controller) retryPolicy(chip *ChipParams) (RetryPolicy, error) {
	if chip.OTP != nil {
		p, err := c.ReadOTPRetryTable(chip.OTP)
		if err == nil {
			return p, nil
		}
		glog.Warningf("%s: %v", chip.Name, err)
	}
	if chip.Retry == nil {
		return NoRetry, nil
	}
	if err := chip.Retry.Validate(); err != nil {
		return RetryPolicy{}, fmt.Errorf("%s: %w", chip.Name, err)
	}
	return chip.Retry.Clone(), nil
}

func (c *Controller) selectChip(ce int) {
	ctl := c.bus.Read32(reg.CTL)
	ctl &^= reg.CtlCESel
	ctl |= uint32(ce&7) << reg.CtlCEShift
	c.bus.Write32(reg.CTL, ctl)
}

// Reset sends RESET (0xFF) to the chip and waits for R/B#.
func (c *Controller) Reset() {
	c.command(nandCmdReset | reg.CmdSendCmd1)
	c.waitReady()
}

// ReadID returns the 8 ID bytes of the chip.
func (c *Controller) ReadID() [8]byte {
	c.waitCmdFIFO()
	c.ahb(true)
	c.bus.Write32(reg.AddrLow, 0)
	c.bus.Write32(reg.AddrHigh, 0)
	c.bus.Write32(reg.CNT, 8)
	c.command(nandCmdReadID | reg.CmdSendAddr | reg.CmdDataTrans | reg.CmdSendCmd1)

	var id [8]byte
	for i := range id {
		id[i] = c.bus.Read8(reg.RAM0 + uint32(i))
	}
	return id
}

// ID returns the ID read by Init.
func (c *Controller) ID() [8]byte { return c.id }

// Chip returns the parameters of the identified chip, or nil before Init.
func (c *Controller) Chip() *ChipParams { return c.chip }

// PageSize returns the page size of the chip, or 0 before Init.
func (c *Controller) PageSize() int {
	if c.chip == nil {
		return 0
	}
	return c.chip.PageSize()
}

// BlockSize returns the erase block size of the chip, or 0 before Init.
func (c *Controller) BlockSize() int {
	if c.chip == nil {
		return 0
	}
	return c.chip.BlockSize()
}
