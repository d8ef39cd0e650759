// Package reg describes the sunxi NAND flash controller and dedicated DMA
// register blocks.
//
// [A10-UM|NFC Register List]
// [A10-UM|DMA Register List]
package reg

// NFC register offsets.
const (
	CTL        = 0x00
	ST         = 0x04
	INT        = 0x08
	TimingCTL  = 0x0C
	TimingCFG  = 0x10
	AddrLow    = 0x14
	AddrHigh   = 0x18
	SectorNum  = 0x1C
	CNT        = 0x20
	CMD        = 0x24
	RCMDSet    = 0x28
	WCMDSet    = 0x2C
	IOData     = 0x30
	ECCCTL     = 0x34
	ECCST      = 0x38
	ECCCNT0    = 0x40
	UserData0  = 0x50
	SpareArea  = 0xA0
	RAM0       = 0x400
	RAM0Size   = 1024
	MapSize    = 0x1000
	NFCBaseA10 = 0x01C03000
)

// UserData returns the offset of the user data (OOB) word for sector i.
func UserData(i int) uint32 { return UserData0 + uint32(i)*4 }

// ECCCNT returns the offset of the corrected-bit counter register holding
// sectors i..i+3.
func ECCCNT(i int) uint32 { return ECCCNT0 + uint32(i/4)*4 }

// CTL bits.
const (
	CtlEnable    = 1 << 0
	CtlReset     = 1 << 1
	CtlBusWidth  = 1 << 2
	CtlRBSel     = 1 << 3
	CtlPageShift = 8
	CtlPageSize  = 0xf << CtlPageShift
	CtlRAMMethod = 1 << 14
	CtlCEShift   = 24
	CtlCESel     = 7 << CtlCEShift
)

// ST bits. Flags are cleared by writing one.
const (
	StRBB2R       = 1 << 0
	StCmdIntFlag  = 1 << 1
	StDMAIntFlag  = 1 << 2
	StCmdFIFOBusy = 1 << 3
	StBusy        = 1 << 4
	StRBState0    = 1 << 8
)

// CMD bits.
const (
	CmdLowByte     = 0xff
	CmdAddrShift   = 16
	CmdAddrNum     = 7 << CmdAddrShift
	CmdSendAddr    = 1 << 19
	CmdAccessDir   = 1 << 20 // write
	CmdDataTrans   = 1 << 21
	CmdSendCmd1    = 1 << 22
	CmdWaitFlag    = 1 << 23
	CmdSendCmd2    = 1 << 24
	CmdSeq         = 1 << 25
	CmdDataSwap    = 1 << 26
	CmdTypeShift   = 30
	CmdType        = 3 << CmdTypeShift
	CmdTypeNormal  = 0 << CmdTypeShift
	CmdTypePage    = 2 << CmdTypeShift
	DefaultRCMDSet = 0x00e00530 // 0x30 read confirm, 0x05/0xe0 random data output
	DefaultWCMDSet = 0x00008510 // 0x10 program confirm, 0x85 random data input
)

// CmdAddr5 selects five address cycles: two column and three row bytes.
const CmdAddr5 = (5 - 1) << CmdAddrShift

// ECC_CTL bits.
const (
	ECCEnable        = 1 << 0
	ECCPipeline      = 1 << 3
	ECCException     = 1 << 4
	ECCBlockSize     = 1 << 5
	RandomEnable     = 1 << 9
	RandomDirection  = 1 << 10
	ECCModeShift     = 12
	ECCMode          = 0xf << ECCModeShift
	RandomSeedShift  = 16
	RandomSeed       = 0x7fff << RandomSeedShift
	ECCSTSectorsMask = 0xffff
)

// Dedicated DMA channel layout. Channel n lives at DDMABase + n*DDMAStride.
const (
	DMABaseA10 = 0x01C02000
	DDMABase   = 0x300
	DDMAStride = 0x20
	DDMAChans  = 8

	DDMACfg  = 0x00
	DDMASrc  = 0x04
	DDMADst  = 0x08
	DDMABC   = 0x0C
	DDMAPara = 0x18
)

// DDMA config bits.
const (
	DDMASrcDRQShift   = 0
	DDMASrcAddrShift  = 5
	DDMASrcBurst4     = 1 << 7
	DDMASrcWidth32    = 2 << 8
	DDMADstDRQShift   = 16
	DDMADstAddrShift  = 21
	DDMADstBurst4     = 1 << 23
	DDMADstWidth32    = 2 << 24
	DDMAContinuous    = 1 << 29
	DDMALoading       = 1 << 31
	DDMAAddrLinear    = 0
	DDMAAddrIO        = 1
	DDMADRQSRAM       = 0x0
	DDMADRQSDRAM      = 0x1
	DDMADRQNFC        = 0x3
	DDMACommitBlkCnt  = 0x7f077f07
	DDMADRAMAddrMatch = 0xC0000000
)
