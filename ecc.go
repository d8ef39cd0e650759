package nfc

import (
	"fmt"

	"github.com/gentam/nfc/internal/reg"
	"github.com/golang/glog"
)

// randomSeed holds the randomizer seeds; page p is scrambled with
// randomSeed[p%128]. [sunxi-NFC|Randomizer]
var randomSeed = [128]uint16{
	0x2b75, 0x0bd0, 0x5ca3, 0x62d1, 0x1c93, 0x07e9, 0x2162, 0x3a72,
	0x0d67, 0x67f9, 0x1be7, 0x077d, 0x032f, 0x0dac, 0x2716, 0x2436,
	0x7922, 0x1510, 0x3860, 0x5287, 0x480f, 0x4252, 0x1789, 0x5a2d,
	0x2a49, 0x5e10, 0x437f, 0x4b4e, 0x2f45, 0x216e, 0x5cb7, 0x7130,
	0x2a3f, 0x60e4, 0x4dc9, 0x0ef0, 0x0f52, 0x1bb9, 0x6211, 0x7a56,
	0x226d, 0x4ea7, 0x6f36, 0x3692, 0x38bf, 0x0c62, 0x05eb, 0x4c55,
	0x60f4, 0x728c, 0x3b6f, 0x2037, 0x7f69, 0x0936, 0x651a, 0x4ceb,
	0x6218, 0x79f3, 0x383f, 0x18d9, 0x4f05, 0x5c82, 0x2912, 0x6f17,
	0x6856, 0x5938, 0x1007, 0x61ab, 0x3e7f, 0x57c2, 0x542f, 0x4f62,
	0x7454, 0x2eac, 0x7739, 0x42d4, 0x2f90, 0x435a, 0x2e52, 0x2064,
	0x637c, 0x66ad, 0x2c90, 0x0bad, 0x759c, 0x0029, 0x0986, 0x7126,
	0x1ca7, 0x1605, 0x386a, 0x27f5, 0x1380, 0x6d75, 0x24c3, 0x0f8e,
	0x2b7a, 0x1418, 0x1fd1, 0x7dc1, 0x2d8e, 0x43af, 0x2267, 0x7da3,
	0x4e3d, 0x1338, 0x50db, 0x454d, 0x764d, 0x40a3, 0x42e6, 0x262b,
	0x2d2e, 0x1aea, 0x2e17, 0x173d, 0x3a6e, 0x71bf, 0x25f9, 0x0a5d,
	0x7c57, 0x0fbe, 0x46ce, 0x4939, 0x6b17, 0x37bb, 0x3e91, 0x76db,
}

// RandomSeed returns the randomizer seed for page.
func RandomSeed(page uint32) uint16 { return randomSeed[page%uint32(len(randomSeed))] }

// eccStrength maps the ECC_CTL mode field to the correctable bits per 1KiB
// sector. [A10-UM|NFC_REG_ECC_CTL ECC_MODE]
var eccStrength = [...]int{16, 24, 28, 32, 40, 48, 56, 60, 64}

// ECCStrength returns the correctable bits per sector of ECC mode. Unknown
// modes fall back to the weakest setting.
func ECCStrength(mode int) int {
	if mode < 0 || mode >= len(eccStrength) {
		return eccStrength[0]
	}
	return eccStrength[mode]
}

// A sector within nearLimitMargin bits of the ECC strength still reads, but
// is counted as near the limit.
const nearLimitMargin = 4

// ECCStatus summarizes a page read that passed ECC.
type ECCStatus struct {
	Corrected int // bit errors corrected over all sectors
	NearLimit int // sectors close to the correction limit
}

func (c *Controller) setECCMode(mode int) {
	ctl := c.bus.Read32(reg.ECCCTL)
	ctl &^= reg.ECCMode
	ctl |= uint32(mode) << reg.ECCModeShift & reg.ECCMode
	c.bus.Write32(reg.ECCCTL, ctl)
}

func (c *Controller) enableECC() {
	ctl := c.bus.Read32(reg.ECCCTL)
	ctl |= reg.ECCPipeline
	// no exception on erased sectors while the randomizer is on
	if ctl&reg.RandomEnable != 0 {
		ctl &^= reg.ECCException
	} else {
		ctl |= reg.ECCException
	}
	ctl |= reg.ECCEnable
	c.bus.Write32(reg.ECCCTL, ctl)
}

func (c *Controller) disableECC() {
	c.bus.Write32(reg.ECCCTL, c.bus.Read32(reg.ECCCTL)&^reg.ECCEnable)
}

func (c *Controller) enableRandomizer(page uint32) { c.enableRandomSeed(RandomSeed(page)) }

func (c *Controller) enableRandomSeed(seed uint16) {
	ctl := c.bus.Read32(reg.ECCCTL)
	ctl |= reg.RandomEnable
	ctl &^= reg.RandomDirection
	ctl &^= reg.RandomSeed
	ctl |= uint32(seed) << reg.RandomSeedShift
	c.bus.Write32(reg.ECCCTL, ctl)
}

func (c *Controller) disableRandomizer() {
	c.bus.Write32(reg.ECCCTL, c.bus.Read32(reg.ECCCTL)&^reg.RandomEnable)
}

// checkECC inspects the ECC engine after reading the given number of 1KiB sectors.
func (c *Controller) checkECC(sectors int) (ECCStatus, error) {
	mode := int(c.bus.Read32(reg.ECCCTL)&reg.ECCMode) >> reg.ECCModeShift
	limit := ECCStrength(mode)

	failed := c.bus.Read32(reg.ECCST) & reg.ECCSTSectorsMask
	for i := range sectors {
		if failed&(1<<i) != 0 {
			return ECCStatus{}, fmt.Errorf("sector %d: %w", i, ErrECCUncorrectable)
		}
	}

	var s ECCStatus
	for i := 0; i < sectors; i += 4 {
		cnt := c.bus.Read32(reg.ECCCNT(i))
		for j := i; j < min(i+4, sectors); j, cnt = j+1, cnt>>8 {
			bits := int(cnt & 0xff)
			s.Corrected += bits
			if bits >= limit-nearLimitMargin {
				glog.V(1).Infof("ECC limit %d/%d in sector %d", bits, limit, j)
				s.NearLimit++
			}
		}
	}
	return s, nil
}
