package nfc

import (
	"github.com/gentam/nfc/internal/reg"
	"github.com/golang/glog"
)

// NAND commands:
//   - [ONFI|Table 5.1 Command set]
//   - [H27UCG8T2A|Read Retry] vendor parameter access
const (
	nandCmdRead0       = 0x00
	nandCmdReadStart   = 0x30
	nandCmdSeqIn       = 0x80
	nandCmdPageProg    = 0x10
	nandCmdStatus      = 0x70
	nandCmdReadID      = 0x90
	nandCmdReset       = 0xFF
	nandCmdSetParam    = 0x36 // write one parameter register
	nandCmdCommitParam = 0x16 // apply parameters, leave OTP access
	nandCmdOTPEnter1   = 0x17
	nandCmdOTPEnter2   = 0x04
	nandCmdOTPEnter3   = 0x19
	nandCmdOTPExit     = 0x38
)

// readPageCmd is the CMD register value for a DMA page read:
// 0x00, five address cycles, 0x30 from RCMD_SET, wait R/B#, data.
const readPageCmd = nandCmdRead0 | reg.CmdSendCmd1 | reg.CmdSendAddr | reg.CmdAddr5 | reg.CmdSendCmd2 | reg.CmdWaitFlag | reg.CmdDataTrans |
	reg.CmdDataSwap | reg.CmdTypePage

// programPageCmd: 0x80, five address cycles, data, 0x10 from WCMD_SET.
const programPageCmd = nandCmdSeqIn | reg.CmdSendCmd1 | reg.CmdSendAddr | reg.CmdAddr5 |
	reg.CmdSendCmd2 | reg.CmdWaitFlag | reg.CmdDataTrans | reg.CmdDataSwap | reg.CmdAccessDir |
	reg.CmdTypePage

func (c *Controller) st() Status { return Status(c.bus.Read32(reg.ST)) }

func (c *Controller) soft(err error) {
	if err != nil {
		glog.Warningf("%v (ST=%v)", err, c.st())
	}
}

func (c *Controller) waitCmdFIFO() {
	c.soft(c.busyWait("command fifo", c.cfg.Timeouts.Command, func() bool {
		return !c.st().FIFOFull()
	}))
}

func (c *Controller) waitCmdDone() {
	c.soft(c.busyWait("command done", c.cfg.Timeouts.Command, func() bool {
		return c.st().CommandDone()
	}))
	c.bus.Write32(reg.ST, reg.StCmdIntFlag)
}

func (c *Controller) waitReady() {
	c.bus.Write32(reg.CTL, c.bus.Read32(reg.CTL)&^reg.CtlRBSel) // R/B#0
	c.soft(c.busyWait("ready", c.cfg.Timeouts.Ready, func() bool {
		return c.st().Ready()
	}))
}

// complete waits for the command issued last to leave the FIFO and finish.
func (c *Controller) complete() {
	c.waitCmdFIFO()
	c.waitCmdDone()
}

// command issues one command word and waits for it to finish.
func (c *Controller) command(cfg uint32) {
	c.waitCmdFIFO()
	c.bus.Write32(reg.CMD, cfg)
	c.complete()
}

// ahb switches RAM0 to CPU access (RAM_METHOD clear) or DMA access.
func (c *Controller) ahb(cpu bool) {
	ctl := c.bus.Read32(reg.CTL)
	if cpu {
		ctl &^= reg.CtlRAMMethod
	} else {
		ctl |= reg.CtlRAMMethod
	}
	c.bus.Write32(reg.CTL, ctl)
}

// setAddr loads the five address cycles: two column bytes, three row bytes.
func (c *Controller) setAddr(column, row uint32) {
	c.bus.Write32(reg.AddrLow, column&0xffff|row<<16)
	c.bus.Write32(reg.AddrHigh, row>>16)
}

// sendCmd sends a bare command cycle.
func (c *Controller) sendCmd(op uint8) {
	c.waitCmdFIFO()
	c.ahb(true)
	c.command(uint32(op) | reg.CmdSendCmd1)
}

// writeParam sends op, one address cycle and a single data byte. With op
// negative only the address and data cycles go out.
func (c *Controller) writeParam(op int, addr, value uint8) {
	c.waitCmdFIFO()
	c.ahb(true)
	c.bus.Write32(reg.CNT, 1)
	c.bus.Write8(reg.RAM0, value)
	c.bus.Write32(reg.AddrLow, uint32(addr))
	c.bus.Write32(reg.AddrHigh, 0)
	cfg := uint32(reg.CmdWaitFlag | reg.CmdDataTrans | reg.CmdAccessDir | reg.CmdSendAddr)
	if op >= 0 {
		cfg |= uint32(op) | reg.CmdSendCmd1
	}
	c.command(cfg)
}

// readAt issues a page read of row at column without transferring data;
// the chip's page register is then streamed with readData.
func (c *Controller) readAt(column, row uint32) {
	c.waitCmdFIFO()
	c.ahb(true)
	c.setAddr(column, row)
	c.bus.Write32(reg.RCMDSet, nandCmdReadStart)
	c.command(nandCmdRead0 | reg.CmdSendCmd1 | reg.CmdSendAddr | reg.CmdAddr5 |
		reg.CmdSendCmd2 | reg.CmdWaitFlag)
}

// readData streams len(p) bytes from the chip through RAM0, one RAM0 worth
// at a time.
func (c *Controller) readData(p []byte) {
	c.ahb(true)
	for off := 0; off < len(p); {
		n := min(len(p)-off, reg.RAM0Size)
		c.bus.Write32(reg.CNT, uint32(n))
		c.command(reg.CmdDataTrans | reg.CmdDataSwap)
		for i := range n {
			p[off+i] = c.bus.Read8(reg.RAM0 + uint32(i))
		}
		off += n
	}
}

func (c *Controller) readStatus() ChipStatus {
	c.waitCmdFIFO()
	c.ahb(true)
	c.bus.Write32(reg.CNT, 1)
	c.command(nandCmdStatus | reg.CmdSendCmd1 | reg.CmdDataTrans)
	return ChipStatus(c.bus.Read8(reg.RAM0))
}

// startDMA launches a page transfer through the shared buffer. A transfer
// still in flight is waited for first.
func (c *Controller) startDMA(dir Direction, n int) error {
	if c.dmaActive {
		c.soft(c.waitDMA())
	}
	if err := c.dma.Start(dir, c.cfg.NFCBase+reg.IOData, c.buf, n); err != nil {
		return err
	}
	c.dmaActive = true
	return nil
}

func (c *Controller) waitDMA() error {
	c.dmaActive = false
	return c.busyWait("dma", c.cfg.Timeouts.DMA, func() bool {
		return !c.dma.Busy()
	})
}
