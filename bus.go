package nfc

import (
	"fmt"

	"periph.io/x/host/v3/pmem"
)

// Bus gives access to a memory-mapped register block. Offsets are relative
// to the start of the block.
type Bus interface {
	Read32(off uint32) uint32
	Write32(off uint32, v uint32)
	Read8(off uint32) uint8
	Write8(off uint32, v uint8)
}

// MemBus is a Bus backed by a mapping of physical memory.
type MemBus struct {
	view *pmem.View
	w    []uint32
	b    []byte
}

// MapBus maps size bytes of physical memory at base.
func MapBus(base uint64, size int) (*MemBus, error) {
	v, err := pmem.Map(base, size)
	if err != nil {
		return nil, fmt.Errorf("failed to map %#x: %w", base, err)
	}
	return &MemBus{view: v, w: v.Uint32(), b: v.Bytes()}, nil
}

func (m *MemBus) Read32(off uint32) uint32     { return m.w[off/4] }
func (m *MemBus) Write32(off uint32, v uint32) { m.w[off/4] = v }
func (m *MemBus) Read8(off uint32) uint8       { return m.b[off] }
func (m *MemBus) Write8(off uint32, v uint8)   { m.b[off] = v }

// Close unmaps the register block.
func (m *MemBus) Close() error {
	return m.view.Close()
}
