package nfc

import (
	"fmt"

	"github.com/gentam/nfc/internal/reg"
)

// Direction of a DMA transfer.
type Direction int

const (
	DeviceToMemory Direction = iota // page read
	MemoryToDevice                  // page program
)

func (d Direction) String() string {
	if d == MemoryToDevice {
		return "mem->nfc"
	}
	return "nfc->mem"
}

// Buffer is a physically contiguous memory region a DMA engine can reach.
// *pmem.MemAlloc implements it.
type Buffer interface {
	Bytes() []byte
	PhysAddr() uint64
}

// DMA is a one-shot DMA channel between the NFC data port and memory.
type DMA interface {
	// Start configures and launches a transfer of n bytes between the
	// device address dev and mem.
	Start(dir Direction, dev uint32, mem Buffer, n int) error
	// Busy reports whether the last transfer is still running.
	Busy() bool
}

// DedicatedDMA drives one channel of the sunxi dedicated DMA controller.
//
// [A10-UM|DMA: Dedicated DMA Configuration Register]
type DedicatedDMA struct {
	bus  Bus
	base uint32
}

// NewDedicatedDMA claims dedicated channel ch of the DMA block on bus.
func NewDedicatedDMA(bus Bus, ch int) (*DedicatedDMA, error) {
	if bus == nil || ch < 0 || ch >= reg.DDMAChans {
		return nil, fmt.Errorf("dedicated channel %d: %w", ch, ErrDMARequest)
	}
	return &DedicatedDMA{bus: bus, base: reg.DDMABase + uint32(ch)*reg.DDMAStride}, nil
}

func memDRQ(addr uint32) uint32 {
	if addr&reg.DDMADRAMAddrMatch != 0 {
		return reg.DDMADRQSDRAM
	}
	return reg.DDMADRQSRAM
}

func (d *DedicatedDMA) Start(dir Direction, dev uint32, mem Buffer, n int) error {
	if n <= 0 || n > len(mem.Bytes()) {
		return fmt.Errorf("dma transfer of %d bytes into %d byte buffer", n, len(mem.Bytes()))
	}
	addr := uint32(mem.PhysAddr())

	var cfg, src, dst uint32
	switch dir {
	case DeviceToMemory:
		cfg = reg.DDMADRQNFC<<reg.DDMASrcDRQShift | reg.DDMAAddrIO<<reg.DDMASrcAddrShift |
			memDRQ(addr)<<reg.DDMADstDRQShift | reg.DDMAAddrLinear<<reg.DDMADstAddrShift
		src, dst = dev, addr
	case MemoryToDevice:
		cfg = memDRQ(addr)<<reg.DDMASrcDRQShift | reg.DDMAAddrLinear<<reg.DDMASrcAddrShift |
			reg.DDMADRQNFC<<reg.DDMADstDRQShift | reg.DDMAAddrIO<<reg.DDMADstAddrShift
		src, dst = addr, dev
	default:
		return fmt.Errorf("dma direction %d", dir)
	}
	cfg |= reg.DDMASrcBurst4 | reg.DDMASrcWidth32 | reg.DDMADstBurst4 | reg.DDMADstWidth32

	d.bus.Write32(d.base+reg.DDMASrc, src)
	d.bus.Write32(d.base+reg.DDMADst, dst)
	d.bus.Write32(d.base+reg.DDMABC, uint32(n))
	d.bus.Write32(d.base+reg.DDMAPara, reg.DDMACommitBlkCnt)
	d.bus.Write32(d.base+reg.DDMACfg, cfg|reg.DDMALoading)
	return nil
}

func (d *DedicatedDMA) Busy() bool {
	return d.bus.Read32(d.base+reg.DDMACfg)&reg.DDMALoading != 0
}
