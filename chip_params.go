package nfc

import (
	"bytes"

	"periph.io/x/conn/v3/physic"
)

// ChipParams describes a NAND chip model.
type ChipParams struct {
	Name string
	ID   []byte // ID prefix as returned by READ ID (0x90)

	PageShift  uint // log2 of the page size, 10 (1KiB) to 14 (16KiB)
	BlockShift uint // log2 of the pages per block
	Blocks     int
	ECCMode    int // ECC_CTL mode, see ECCStrength
	MaxClock   physic.Frequency

	// Retry is the hard-coded read-retry table, nil for none.
	Retry *RetryPolicy
	// OTP, when set, is tried before Retry.
	OTP *OTPLayout
}

func (p ChipParams) PageSize() int      { return 1 << p.PageShift }
func (p ChipParams) PagesPerBlock() int { return 1 << p.BlockShift }
func (p ChipParams) BlockSize() int     { return 1 << (p.PageShift + p.BlockShift) }
func (p ChipParams) Size() int64        { return int64(p.Blocks) << (p.PageShift + p.BlockShift) }

const (
	mfrToshiba = 0x98
	mfrSamsung = 0xec
	mfrHynix   = 0xad
	mfrMicron  = 0x2c
)

// [H27UCG8T2E|Read Retry Table], also the SPL fallback when OTP is unreadable.
var retryH27UCG8T2E = RetryPolicy{
	Steps:     8,
	Registers: []uint8{0x38, 0x39, 0x3a, 0x3b},
	Values: []uint8{
		0x00, 0x00, 0x00, 0x00,
		0x02, 0x02, 0xfe, 0xfd,
		0x03, 0x03, 0xff, 0xf5,
		0xf1, 0xfd, 0xf8, 0xf7,
		0xed, 0xfc, 0xfb, 0xf5,
		0xe7, 0xfb, 0xf1, 0xf0,
		0xdd, 0xf8, 0xf7, 0xf4,
		0xd3, 0xe4, 0xeb, 0xeb,
	},
}

var knownChips = []ChipParams{
	{
		Name: "Hynix H27UCG8T2A 64Gb",
		ID:   []byte{mfrHynix, 0xde, 0x94, 0xda, 0x74, 0xc4},

		PageShift:  13,
		BlockShift: 8,
		Blocks:     4096,
		ECCMode:    4,
		MaxClock:   40 * physic.MegaHertz,
		OTP:        OTPH27UCG8T2A,
	},
	{
		Name: "Hynix H27UBG8T2B 32Gb",
		ID:   []byte{mfrHynix, 0xd7, 0x94, 0xda, 0x74, 0xc3},

		PageShift:  13,
		BlockShift: 8,
		Blocks:     2048,
		ECCMode:    4,
		MaxClock:   40 * physic.MegaHertz,
		OTP:        OTPH27UCG8T2A, // same RRT procedure as the T2A
	},
	{
		Name: "Hynix H27UCG8T2E 64Gb",
		ID:   []byte{mfrHynix, 0xde, 0x14, 0xa7, 0x42, 0x4a},

		PageShift:  14,
		BlockShift: 8,
		Blocks:     2048,
		ECCMode:    4,
		MaxClock:   40 * physic.MegaHertz,
		Retry:      &retryH27UCG8T2E,
		OTP:        OTPH27UCG8T2E,
	},
	{
		Name: "Samsung K9GBG08U0A 32Gb",
		ID:   []byte{mfrSamsung, 0xd7, 0x94, 0x7a, 0x54, 0x43},

		PageShift:  13,
		BlockShift: 7,
		Blocks:     4096,
		ECCMode:    1,
		MaxClock:   30 * physic.MegaHertz,
	},
	{
		Name: "Samsung K9GAG08U0E 16Gb",
		ID:   []byte{mfrSamsung, 0xd5, 0x84, 0x72, 0x50, 0x42},

		PageShift:  13,
		BlockShift: 7,
		Blocks:     2048,
		ECCMode:    1,
		MaxClock:   30 * physic.MegaHertz,
	},
	{
		Name: "Toshiba TC58NVG5D2 32Gb",
		ID:   []byte{mfrToshiba, 0xd7, 0x94, 0x32, 0x76, 0x56},

		PageShift:  13,
		BlockShift: 7,
		Blocks:     4096,
		ECCMode:    1,
		MaxClock:   30 * physic.MegaHertz,
	},
	{
		Name: "Micron MT29F64G08CBAAA 64Gb",
		ID:   []byte{mfrMicron, 0x88, 0x04, 0x4b, 0xa9},

		PageShift:  13,
		BlockShift: 8,
		Blocks:     4096,
		ECCMode:    3,
		MaxClock:   30 * physic.MegaHertz,
	},
}

// KnownChips returns a copy of the built-in chip table.
func KnownChips() []ChipParams {
	return append([]ChipParams(nil), knownChips...)
}

// LookupChip finds the entry of chips whose ID is the longest prefix of id.
func LookupChip(chips []ChipParams, id [8]byte) (ChipParams, bool) {
	best := -1
	for i, p := range chips {
		if len(p.ID) == 0 || len(p.ID) > len(id) || !bytes.HasPrefix(id[:], p.ID) {
			continue
		}
		if best < 0 || len(p.ID) > len(chips[best].ID) {
			best = i
		}
	}
	if best < 0 {
		return ChipParams{}, false
	}
	return chips[best], true
}
