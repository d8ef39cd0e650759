package nfc

import (
	"errors"
	"fmt"

	"github.com/gentam/nfc/internal/reg"
	"github.com/golang/glog"
)

// badBlockCmd reads two spare bytes of a page through RAM0:
// 0x00, five address cycles, 0x30, wait R/B#, data.
const badBlockCmd = nandCmdRead0 | reg.CmdSeq | reg.CmdSendCmd1 | reg.CmdDataTrans | reg.CmdSendAddr |
	reg.CmdSendCmd2 | reg.CmdAddr5 | reg.CmdWaitFlag | reg.CmdTypeNormal

// IsBlockBad reports whether block carries a factory bad block marker: a
// non-0xFF first spare byte in its first page.
func (c *Controller) IsBlockBad(block uint32) (bool, error) {
	if c.chip == nil {
		return false, ErrNotInitialized
	}
	if int(block) >= c.chip.Blocks {
		return false, fmt.Errorf("block %d of %d: %w", block, c.chip.Blocks, ErrOutOfRange)
	}
	page := block << c.chip.BlockShift

	c.waitCmdFIFO()
	c.ahb(true)
	c.setAddr(uint32(c.chip.PageSize()), page)
	c.bus.Write32(reg.CNT, 2)
	c.bus.Write32(reg.SectorNum, 1)
	c.bus.Write32(reg.RCMDSet, nandCmdReadStart)
	c.command(badBlockCmd)

	marker := c.bus.Read8(reg.RAM0)
	if marker != 0xff {
		glog.V(1).Infof("bad block %d (marker %#02x)", block, marker)
		return true, nil
	}
	return false, nil
}

// LoadStats summarizes a LoadImage run.
type LoadStats struct {
	Pages       int      // pages read
	BadBlocks   []uint32 // blocks skipped
	FailedPages []uint32 // pages that could not be recovered
}

// LoadImage fills dst with the data stored from offset on, skipping bad
// blocks. offset must be page aligned. A bad block moves the read to the
// start of the next block.
//
// Unrecoverable pages are logged and listed in the stats; their raw data is
// left in dst and loading goes on. An error is returned only when the image
// runs past the end of the chip or the controller fails.
func (c *Controller) LoadImage(offset uint64, dst []byte) (LoadStats, error) {
	var stats LoadStats
	if c.chip == nil {
		return stats, ErrNotInitialized
	}
	pageSize := uint64(c.chip.PageSize())
	blockSize := uint64(c.chip.BlockSize())
	if offset%pageSize != 0 {
		return stats, fmt.Errorf("offset %#x: %w", offset, ErrUnaligned)
	}

	var scratch []byte
	for len(dst) > 0 {
		block := offset / blockSize
		if block >= uint64(c.chip.Blocks) {
			return stats, fmt.Errorf("offset %#x with %d bytes left: %w", offset, len(dst), ErrOutOfRange)
		}
		bad, err := c.IsBlockBad(uint32(block))
		if err != nil {
			return stats, err
		}
		if bad {
			glog.Infof("Bad NAND block %#x", offset)
			stats.BadBlocks = append(stats.BadBlocks, uint32(block))
			offset = (block + 1) * blockSize
			continue
		}

		for end := (block + 1) * blockSize; offset < end && len(dst) > 0; offset += pageSize {
			page := uint32(offset / pageSize)
			n := min(uint64(len(dst)), pageSize)
			p := dst[:n]
			if n < pageSize {
				if scratch == nil {
					scratch = make([]byte, pageSize)
				}
				p = scratch
			}

			err := c.ReadPage(page, p)
			stats.Pages++
			if pe := (*PageError)(nil); errors.As(err, &pe) {
				stats.FailedPages = append(stats.FailedPages, page)
			} else if err != nil {
				return stats, err
			}
			if n < pageSize {
				copy(dst, scratch)
			}
			dst = dst[n:]
		}
	}
	return stats, nil
}
