package nfctest

import (
	"bytes"
	"maps"
	"slices"

	"github.com/gentam/nfc"
	"periph.io/x/conn/v3/gpio"
)

// Fault is the outcome the ECC engine reports for a read of a programmed
// page.
type Fault struct {
	Uncorrectable bool
	Corrected     int // bit errors in sector 0
}

// Chip models a raw NAND chip with Hynix style read-retry registers.
type Chip struct {
	ID            [8]byte
	PageSize      int
	SpareSize     int
	PagesPerBlock int
	Blocks        int

	// Bad lists blocks with a factory bad block marker.
	Bad map[uint32]bool
	// OTP is exposed as page 0x200 after the 0x16 0x17 0x04 0x19 sequence.
	OTP []byte
	// Fault decides the ECC outcome of reading page with the read-retry
	// registers applied. Nil means every programmed page reads clean.
	Fault func(page uint32, applied map[uint8]uint8) Fault
	// FailStatus makes READ STATUS report FAIL.
	FailStatus bool
	// RawFlips is the number of zero bits in every erased page.
	RawFlips int
	// WP is the chip's WP# input. Programming fails while it reads low.
	WP gpio.PinIn

	// Latched holds parameter writes not yet applied with 0x16.
	Latched map[uint8]uint8
	// Applied is the parameter set in effect.
	Applied map[uint8]uint8
	// Commits records Applied after every 0x16.
	Commits []map[uint8]uint8

	pages   map[uint32][]byte
	otpMode bool
	history []uint8
	cmd     uint8
	addr    []byte
	column  int
	row     uint32
	out     []byte
	in      []byte
	fail    bool
}

// NewChip returns an erased chip with the geometry and ID of p.
func NewChip(p nfc.ChipParams) *Chip {
	c := &Chip{
		PageSize:      p.PageSize(),
		SpareSize:     p.PageSize() / 16,
		PagesPerBlock: p.PagesPerBlock(),
		Blocks:        p.Blocks,
		Bad:           map[uint32]bool{},
		Latched:       map[uint8]uint8{},
		Applied:       map[uint8]uint8{},
		pages:         map[uint32][]byte{},
	}
	copy(c.ID[:], p.ID)
	return c
}

// Program stores data in page, bypassing the controller.
func (c *Chip) Program(page uint32, data []byte) {
	p := bytes.Repeat([]byte{0xff}, c.PageSize)
	copy(p, data)
	c.pages[page] = p
}

// Page returns the contents of page, nil if it is erased.
func (c *Chip) Page(page uint32) []byte { return c.pages[page] }

// AppliedValues returns the applied values of regs, in order.
func (c *Chip) AppliedValues(regs []uint8) []uint8 {
	v := make([]uint8, len(regs))
	for i, r := range regs {
		v[i] = c.Applied[r]
	}
	return v
}

func (c *Chip) programmed(page uint32) bool {
	_, ok := c.pages[page]
	return ok
}

func (c *Chip) fault(page uint32) Fault {
	if c.Fault == nil {
		return Fault{}
	}
	return c.Fault(page, c.Applied)
}

func (c *Chip) command(op uint8) {
	switch op {
	case 0xff: // reset
		c.otpMode = false
		c.fail = false
		c.out = nil
	case 0x90: // read ID
		c.out = slices.Clone(c.ID[:])
	case 0x30: // read confirm
		c.loadPage()
	case 0x70: // read status
		c.out = []byte{c.status()}
	case 0x16: // apply parameters
		c.Applied = maps.Clone(c.Latched)
		c.Commits = append(c.Commits, maps.Clone(c.Applied))
	case 0x80: // serial data input
		c.in = nil
	case 0x10: // program confirm
		c.program()
	}
	if op != 0x30 && op != 0x10 && op != 0x70 {
		c.cmd = op
	}

	c.history = append(c.history, op)
	if n := len(c.history); n >= 4 && bytes.Equal(c.history[n-4:], []byte{0x16, 0x17, 0x04, 0x19}) {
		c.otpMode = true
	}
}

func (c *Chip) address(a []byte) {
	c.addr = slices.Clone(a)
	if len(a) >= 5 {
		c.column = int(a[0]) | int(a[1])<<8
		c.row = uint32(a[2]) | uint32(a[3])<<8 | uint32(a[4])<<16
	}
}

func (c *Chip) write(p []byte) {
	if c.cmd == 0x80 {
		c.in = append(c.in, p...)
		return
	}
	if len(c.addr) > 0 && len(p) > 0 {
		c.Latched[c.addr[0]] = p[0]
	}
}

func (c *Chip) read(n int) []byte {
	p := bytes.Repeat([]byte{0xff}, n)
	k := copy(p, c.out)
	c.out = c.out[k:]
	return p
}

// pageRegister returns the data and spare area of page.
func (c *Chip) pageRegister(page uint32) []byte {
	reg := bytes.Repeat([]byte{0xff}, c.PageSize+c.SpareSize)
	if p, ok := c.pages[page]; ok {
		copy(reg, p)
	} else {
		for i := range c.RawFlips {
			reg[i/8] &^= 1 << (i % 8)
		}
	}
	block := page / uint32(c.PagesPerBlock)
	if c.Bad[block] && page%uint32(c.PagesPerBlock) == 0 {
		reg[c.PageSize] = 0x00
	}
	return reg
}

func (c *Chip) loadPage() {
	var reg []byte
	if c.otpMode && c.row == 0x200 {
		reg = bytes.Repeat([]byte{0xff}, max(len(c.OTP), c.PageSize))
		copy(reg, c.OTP)
	} else {
		reg = c.pageRegister(c.row)
	}
	c.out = reg[min(c.column, len(reg)):]
}

func (c *Chip) writeProtected() bool {
	return c.WP != nil && c.WP.Read() == gpio.Low
}

func (c *Chip) program() {
	if c.FailStatus || c.writeProtected() {
		c.fail = true
		return
	}
	c.Program(c.row, c.in)
	c.fail = false
}

func (c *Chip) status() uint8 {
	s := uint8(0x60) // RDY, ARDY
	if !c.writeProtected() {
		s |= 0x80
	}
	if c.fail || c.FailStatus {
		s |= 0x01
	}
	return s
}
