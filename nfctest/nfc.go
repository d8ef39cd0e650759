// Package nfctest provides a simulated sunxi NAND flash controller, DMA
// channel and NAND chip for testing package nfc without hardware.
package nfctest

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gentam/nfc"
	"github.com/gentam/nfc/internal/reg"
)

// EventKind classifies bus cycles seen by the chip.
type EventKind int

const (
	EventCmd EventKind = iota
	EventAddr
	EventWrite
	EventRead
)

// Event is one group of NAND bus cycles.
type Event struct {
	Kind EventKind
	Data []byte // command, address or written bytes
	N    int    // bytes transferred
}

func (e Event) String() string {
	switch e.Kind {
	case EventCmd:
		return fmt.Sprintf("cmd %02x", e.Data[0])
	case EventAddr:
		return fmt.Sprintf("addr % x", e.Data)
	case EventWrite:
		if e.N <= 16 {
			return fmt.Sprintf("write % x", e.Data)
		}
		return fmt.Sprintf("write %d bytes", e.N)
	case EventRead:
		return fmt.Sprintf("read %d", e.N)
	}
	return "?"
}

// NFC simulates the NFC register block. It implements nfc.Bus.
type NFC struct {
	Chip *Chip
	DMA  *DMA

	// Knobs that keep a status flag from ever changing.
	StuckFIFO  bool // command FIFO stays full
	StuckCmd   bool // command-done flag never rises
	StuckRB    bool // R/B# stays busy
	StuckReset bool // CTL reset bit never clears

	// Log records the bus cycles sent to the chip.
	Log []Event
	// LastSeed is the randomizer seed of the last page transfer with the
	// randomizer on.
	LastSeed uint16
	// LastCTL and LastECCCTL hold CTL and ECC_CTL as of the last page
	// transfer.
	LastCTL    uint32
	LastECCCTL uint32

	regs [reg.RAM0 / 4]uint32
	ram  [reg.RAM0Size]byte
	st   uint32
}

// NewNFC returns a controller wired to chip and dma.
func NewNFC(chip *Chip, dma *DMA) *NFC {
	return &NFC{Chip: chip, DMA: dma}
}

// Rig bundles a simulated controller with its chip, DMA channel and page
// buffer.
type Rig struct {
	NFC  *NFC
	Chip *Chip
	DMA  *DMA
	Buf  *Buffer
}

// NewRig returns a rig with an erased chip described by p.
func NewRig(p nfc.ChipParams) *Rig {
	chip := NewChip(p)
	dma := &DMA{}
	return &Rig{
		NFC:  NewNFC(chip, dma),
		Chip: chip,
		DMA:  dma,
		Buf:  NewBuffer(p.PageSize()),
	}
}

// Commands returns the opcodes in the log, in order.
func (n *NFC) Commands() []uint8 {
	var ops []uint8
	for _, e := range n.Log {
		if e.Kind == EventCmd {
			ops = append(ops, e.Data[0])
		}
	}
	return ops
}

// Trace returns the log, one event per line.
func (n *NFC) Trace() string {
	var b strings.Builder
	for _, e := range n.Log {
		fmt.Fprintln(&b, e)
	}
	return b.String()
}

func isRAM(off uint32) bool { return off >= reg.RAM0 && off < reg.RAM0+reg.RAM0Size }

func (n *NFC) status() uint32 {
	st := n.st
	if !n.StuckRB {
		st |= reg.StRBState0
	}
	if n.StuckFIFO {
		st |= reg.StCmdFIFOBusy
	}
	return st
}

func (n *NFC) Read32(off uint32) uint32 {
	switch {
	case isRAM(off):
		return binary.LittleEndian.Uint32(n.ram[off-reg.RAM0:])
	case off == reg.ST:
		return n.status()
	case off < reg.RAM0:
		return n.regs[off/4]
	}
	return 0
}

func (n *NFC) Write32(off uint32, v uint32) {
	switch {
	case isRAM(off):
		binary.LittleEndian.PutUint32(n.ram[off-reg.RAM0:], v)
	case off == reg.ST:
		n.st &^= v & (reg.StCmdIntFlag | reg.StDMAIntFlag | reg.StRBB2R)
	case off == reg.CTL:
		if !n.StuckReset {
			v &^= reg.CtlReset
		}
		n.regs[off/4] = v
	case off == reg.CMD:
		n.regs[off/4] = v
		n.exec(v)
	case off < reg.RAM0:
		n.regs[off/4] = v
	}
}

func (n *NFC) Read8(off uint32) uint8 {
	if isRAM(off) {
		return n.ram[off-reg.RAM0]
	}
	return uint8(n.Read32(off&^3) >> (off % 4 * 8))
}

func (n *NFC) Write8(off uint32, v uint8) {
	if isRAM(off) {
		n.ram[off-reg.RAM0] = v
	}
}

func (n *NFC) log(kind EventKind, data []byte, size int) {
	e := Event{Kind: kind, N: size}
	if kind != EventRead && size <= 16 {
		e.Data = append([]byte(nil), data...)
	}
	n.Log = append(n.Log, e)
}

func (n *NFC) cmd(op uint8) {
	n.log(EventCmd, []byte{op}, 1)
	n.Chip.command(op)
}

// exec runs one CMD register write: CMD1, address cycles, outgoing data,
// CMD2, incoming data.
func (n *NFC) exec(cfg uint32) {
	page := cfg&reg.CmdType == reg.CmdTypePage
	write := cfg&reg.CmdAccessDir != 0
	data := cfg&reg.CmdDataTrans != 0

	if cfg&reg.CmdSendCmd1 != 0 {
		n.cmd(uint8(cfg))
	}
	if cfg&reg.CmdSendAddr != 0 {
		cycles := int(cfg&reg.CmdAddrNum>>reg.CmdAddrShift) + 1
		lo, hi := n.regs[reg.AddrLow/4], n.regs[reg.AddrHigh/4]
		a := []byte{byte(lo), byte(lo >> 8), byte(lo >> 16), byte(lo >> 24),
			byte(hi), byte(hi >> 8), byte(hi >> 16), byte(hi >> 24)}[:cycles]
		n.log(EventAddr, a, len(a))
		n.Chip.address(a)
	}
	if data && write {
		n.writeData(page)
	}
	if cfg&reg.CmdSendCmd2 != 0 {
		if write {
			n.cmd(uint8(n.regs[reg.WCMDSet/4]))
		} else {
			n.cmd(uint8(n.regs[reg.RCMDSet/4]))
		}
	}
	if data && !write {
		n.readData(page)
	}
	if !n.StuckCmd {
		n.st |= reg.StCmdIntFlag
	}
}

func (n *NFC) eccCtl() uint32 { return n.regs[reg.ECCCTL/4] }

func (n *NFC) noteSeed() {
	if ctl := n.eccCtl(); ctl&reg.RandomEnable != 0 {
		n.LastSeed = uint16(ctl & reg.RandomSeed >> reg.RandomSeedShift)
	}
}

func (n *NFC) notePage() {
	n.LastCTL = n.regs[reg.CTL/4]
	n.LastECCCTL = n.eccCtl()
}

func (n *NFC) cnt() int { return min(int(n.regs[reg.CNT/4]), reg.RAM0Size) }

func (n *NFC) writeData(page bool) {
	if !page {
		p := n.ram[:n.cnt()]
		n.log(EventWrite, p, len(p))
		n.Chip.write(p)
		return
	}
	var p []byte
	if t := n.DMA.take(nfc.MemoryToDevice); t != nil {
		p = t.mem.Bytes()[:t.n]
	}
	n.notePage()
	n.noteSeed()
	n.log(EventWrite, p, len(p))
	n.Chip.write(p)
	n.st |= reg.StDMAIntFlag
}

func (n *NFC) readData(page bool) {
	if !page {
		p := n.Chip.read(n.cnt())
		copy(n.ram[:], p)
		n.log(EventRead, nil, len(p))
		return
	}

	n.notePage()
	sectors := int(n.regs[reg.SectorNum/4])
	p := n.Chip.read(sectors * 1024)
	if n.eccCtl()&reg.ECCEnable != 0 {
		n.noteSeed()
		n.correct(p, sectors)
	}
	if t := n.DMA.take(nfc.DeviceToMemory); t != nil {
		copy(t.mem.Bytes()[:t.n], p)
	}
	n.log(EventRead, nil, len(p))
	n.st |= reg.StDMAIntFlag
}

// correct models the ECC engine on a page read: erased pages can't be
// decoded, programmed pages fail or pass as Chip.Fault decides.
func (n *NFC) correct(p []byte, sectors int) {
	row := n.Chip.row
	n.regs[reg.ECCST/4] = 0
	for i := 0; i < sectors; i += 4 {
		n.regs[reg.ECCCNT(i)/4] = 0
	}

	if !n.Chip.programmed(row) {
		n.regs[reg.ECCST/4] = 1<<sectors - 1
		return
	}
	f := n.Chip.fault(row)
	if f.Uncorrectable {
		n.regs[reg.ECCST/4] = 1
		for i := range p {
			p[i] ^= 0x5a
		}
		return
	}
	n.regs[reg.ECCCNT0/4] = uint32(min(f.Corrected, 0xff))
}
