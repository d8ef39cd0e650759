package nfctest

import (
	"time"

	"github.com/gentam/nfc"
)

type transfer struct {
	dir nfc.Direction
	dev uint32
	mem nfc.Buffer
	n   int
}

// DMA is a simulated DMA channel. Transfers complete when the NFC executes
// the page command they belong to.
type DMA struct {
	// Stuck keeps Busy reporting true.
	Stuck bool
	// Err is returned by Start when set.
	Err error

	Starts   int
	Overlaps int // Start calls while the channel was busy
	LastDev  uint32

	pending *transfer
}

func (d *DMA) Start(dir nfc.Direction, dev uint32, mem nfc.Buffer, n int) error {
	if d.Err != nil {
		return d.Err
	}
	if d.Busy() {
		d.Overlaps++
	}
	d.Starts++
	d.LastDev = dev
	d.pending = &transfer{dir: dir, dev: dev, mem: mem, n: n}
	return nil
}

func (d *DMA) Busy() bool { return d.Stuck || d.pending != nil }

// take completes the pending transfer if it goes in dir.
func (d *DMA) take(dir nfc.Direction) *transfer {
	t := d.pending
	if t == nil || t.dir != dir {
		return nil
	}
	d.pending = nil
	return t
}

// Buffer is a plain byte slice posing as physically contiguous memory.
type Buffer struct {
	b    []byte
	phys uint64
}

// NewBuffer returns an n byte buffer at a fake DRAM address.
func NewBuffer(n int) *Buffer {
	return &Buffer{b: make([]byte, n), phys: 0x4200_0000}
}

func (b *Buffer) Bytes() []byte    { return b.b }
func (b *Buffer) PhysAddr() uint64 { return b.phys }

// Clock is a fake clock advancing by Step on every reading.
type Clock struct {
	T    time.Time
	Step time.Duration
}

func (c *Clock) Now() time.Time {
	c.T = c.T.Add(c.Step)
	return c.T
}
