package nfc

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gentam/nfc/internal/reg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/allwinner"
	"periph.io/x/host/v3/pmem"
)

// Device is a Controller bound to the real hardware through /dev/mem.
type Device struct {
	*Controller

	nfc *MemBus
	dma *MemBus
	buf *pmem.MemAlloc
}

var hostInitialized atomic.Bool

// bufferSize covers the largest supported page (16KiB) plus spare.
const bufferSize = 16<<10 + 2048

// Open maps the NFC and DMA register blocks, allocates the page buffer and
// initializes the controller.
func Open(opts ...Option) (*Device, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}
	if !allwinner.Present() {
		return nil, errors.New("not an Allwinner SoC")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Device{}
	var err error
	if d.nfc, err = MapBus(uint64(cfg.NFCBase), reg.MapSize); err != nil {
		return nil, err
	}
	if d.dma, err = MapBus(reg.DMABaseA10, reg.MapSize); err != nil {
		d.Close()
		return nil, err
	}
	if d.buf, err = pmem.Alloc(bufferSize); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to allocate page buffer: %w", err)
	}

	ch, err := NewDedicatedDMA(d.dma, cfg.DMAChannel)
	if err != nil {
		d.Close()
		return nil, err
	}
	if d.Controller, err = New(d.nfc, ch, d.buf, opts...); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the mappings and the page buffer.
func (d *Device) Close() error {
	var errs []error
	if d.buf != nil {
		errs = append(errs, d.buf.Close())
	}
	if d.dma != nil {
		errs = append(errs, d.dma.Close())
	}
	if d.nfc != nil {
		errs = append(errs, d.nfc.Close())
	}
	return errors.Join(errs...)
}
