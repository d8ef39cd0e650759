package nfc

import (
	"fmt"
	"strings"

	"github.com/gentam/nfc/internal/reg"
)

// Status represents the NFC status register (NFC_REG_ST).
//
//	Bits| [A10-UM|NFC_REG_ST]
//	----+-------------------------------------
//	8   | RB_STATE0: R/B#0 is high (ready)
//	4   | NFC_STA: controller busy
//	3   | CMD_FIFO_STATUS: command FIFO full
//	2   | DMA_INT_FLAG: DMA transfer done
//	1   | CMD_INT_FLAG: command done
//	0   | RB_B2R: R/B# went busy to ready
type Status uint32

func (s Status) Ready() bool       { return s&reg.StRBState0 != 0 }
func (s Status) Busy() bool        { return s&reg.StBusy != 0 }
func (s Status) FIFOFull() bool    { return s&reg.StCmdFIFOBusy != 0 }
func (s Status) DMADone() bool     { return s&reg.StDMAIntFlag != 0 }
func (s Status) CommandDone() bool { return s&reg.StCmdIntFlag != 0 }
func (s Status) BusyToReady() bool { return s&reg.StRBB2R != 0 }

func (s Status) String() string {
	b := fmt.Sprintf("%#03x", uint32(s)&0x1ff)
	f := []string{}
	if s.Ready() {
		f = append(f, "RB0")
	}
	if s.Busy() {
		f = append(f, "STA")
	}
	if s.FIFOFull() {
		f = append(f, "FIFO")
	}
	if s.DMADone() {
		f = append(f, "DMA")
	}
	if s.CommandDone() {
		f = append(f, "CMD")
	}
	if s.BusyToReady() {
		f = append(f, "B2R")
	}
	if len(f) == 0 {
		return b
	}
	return b + " " + strings.Join(f, ",")
}

// ChipStatus is the byte returned by the NAND READ STATUS (0x70) command.
//
//	Bits| [ONFI|5.13 Read Status]
//	----+--------------------------
//	7   | WP#: not write protected
//	6   | RDY: ready
//	5   | ARDY: array ready
//	0   | FAIL: last program/erase failed
type ChipStatus byte

func (s ChipStatus) WriteProtected() bool { return s&(1<<7) == 0 }
func (s ChipStatus) Ready() bool          { return s&(1<<6) != 0 }
func (s ChipStatus) ArrayReady() bool     { return s&(1<<5) != 0 }
func (s ChipStatus) Fail() bool           { return s&(1<<0) != 0 }

func (s ChipStatus) String() string {
	b := fmt.Sprintf("%08b", byte(s))
	f := []string{}
	if s.WriteProtected() {
		f = append(f, "WP")
	}
	if s.Ready() {
		f = append(f, "RDY")
	}
	if s.ArrayReady() {
		f = append(f, "ARDY")
	}
	if s.Fail() {
		f = append(f, "FAIL")
	}
	if len(f) == 0 {
		return b
	}
	return b + " " + strings.Join(f, ",")
}
