package nfc

import (
	"time"

	"github.com/gentam/nfc/internal/reg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Config holds the controller configuration.
type Config struct {
	// Clock measures elapsed time for busy-waits.
	Clock Clock

	// Timeouts bounds every busy-wait on the hardware.
	Timeouts Timeouts

	// Chips is the table consulted by Init to identify the chip.
	Chips []ChipParams

	// MaxClock caps the NAND bus clock regardless of what the chip allows.
	MaxClock physic.Frequency

	// SetRate programs the NFC module clock (optional). Clock divider setup
	// is up to the board.
	SetRate func(physic.Frequency) error

	// WriteProtect drives the WP# line (optional). It is released (high)
	// only while a page is programmed.
	WriteProtect gpio.PinOut

	// NFCBase is the physical address of the NFC register block; the DMA
	// engine needs it to address the IO data port.
	NFCBase uint32

	// DMAChannel is the dedicated DMA channel used by Open.
	DMAChannel int
}

// Timeouts bounds the busy-waits of the controller.
type Timeouts struct {
	Command Timeout // command FIFO drain and command-done flag
	DMA     Timeout // DMA channel idle
	Ready   Timeout // chip R/B# after reset
	Reset   Timeout // controller soft reset
}

// [A10-UM|NFC] the SPL polls with a fixed 0xffff iteration budget.
const defaultIterations = 0xffff

func defaultTimeouts() Timeouts {
	return Timeouts{
		Command: Timeout{Iterations: defaultIterations, Duration: 100 * time.Millisecond},
		DMA:     Timeout{Iterations: defaultIterations, Duration: 100 * time.Millisecond},
		Ready:   Timeout{Iterations: defaultIterations, Duration: time.Second},
		Reset:   Timeout{Iterations: defaultIterations, Duration: 10 * time.Millisecond},
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Clock:    wallClock{},
		Timeouts: defaultTimeouts(),
		Chips:    knownChips,
		MaxClock: 30 * physic.MegaHertz,
		NFCBase:  reg.NFCBaseA10,
	}
}

// Option is a functional option for configuring the Controller.
type Option func(*Config)

// WithClock sets the clock used to measure busy-wait timeouts.
func WithClock(clk Clock) Option {
	return func(c *Config) {
		if clk != nil {
			c.Clock = clk
		}
	}
}

// WithTimeouts replaces all busy-wait bounds.
func WithTimeouts(t Timeouts) Option {
	return func(c *Config) {
		c.Timeouts = t
	}
}

// WithChipTable replaces the built-in chip table.
//
// Example:
//
//	c, err := nfc.New(bus, dma, buf, nfc.WithChipTable(append(nfc.KnownChips(), myChip)))
func WithChipTable(chips []ChipParams) Option {
	return func(c *Config) {
		c.Chips = chips
	}
}

// WithMaxClock caps the NAND bus clock.
func WithMaxClock(f physic.Frequency) Option {
	return func(c *Config) {
		if f > 0 {
			c.MaxClock = f
		}
	}
}

// WithRateHook sets the function that programs the NFC module clock.
func WithRateHook(fn func(physic.Frequency) error) Option {
	return func(c *Config) {
		c.SetRate = fn
	}
}

// WithWriteProtect sets the pin driving the chip's WP# line.
func WithWriteProtect(p gpio.PinOut) Option {
	return func(c *Config) {
		c.WriteProtect = p
	}
}

// WithNFCBase sets the physical address of the NFC register block.
func WithNFCBase(addr uint32) Option {
	return func(c *Config) {
		c.NFCBase = addr
	}
}

// WithDMAChannel selects the dedicated DMA channel used by Open.
func WithDMAChannel(ch int) Option {
	return func(c *Config) {
		c.DMAChannel = ch
	}
}
