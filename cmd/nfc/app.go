package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gentam/nfc"
	"github.com/gentam/nfc/nfctest"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/host/v3"
)

type app struct {
	c     *nfc.Controller
	close func() error
}

func newApp() (*app, error) {
	if flagSim {
		return newSimApp()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host initialization failed: %w", err)
	}
	opts := []nfc.Option{nfc.WithDMAChannel(flagDMAChannel)}
	if flagWP != "" {
		p := gpioreg.ByName(flagWP)
		if p == nil {
			return nil, fmt.Errorf("no GPIO named %q", flagWP)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("failed to drive %s low: %w", p, err)
		}
		opts = append(opts, nfc.WithWriteProtect(p))
	}

	d, err := nfc.Open(opts...)
	if err != nil {
		return nil, err
	}
	return &app{c: d.Controller, close: d.Close}, nil
}

func simChip() (nfc.ChipParams, error) {
	var names []string
	for _, p := range nfc.KnownChips() {
		if strings.Contains(p.Name, flagSimChip) {
			return p, nil
		}
		names = append(names, p.Name)
	}
	return nfc.ChipParams{}, fmt.Errorf("unknown chip %q, known: %s", flagSimChip, strings.Join(names, ", "))
}

func newSimApp() (*app, error) {
	p, err := simChip()
	if err != nil {
		return nil, err
	}
	r := nfctest.NewRig(p)

	if flagSimImage != "" {
		img, err := os.ReadFile(flagSimImage)
		if err != nil {
			return nil, err
		}
		for page := uint32(0); len(img) > 0; page++ {
			n := min(len(img), p.PageSize())
			r.Chip.Program(page, img[:n])
			img = img[n:]
		}
	}

	var opts []nfc.Option
	if flagWP != "" {
		pin := &gpiotest.Pin{N: flagWP, L: gpio.Low}
		if err := gpioreg.Register(pin); err != nil {
			return nil, err
		}
		r.Chip.WP = pin
		opts = append(opts, nfc.WithWriteProtect(gpioreg.ByName(flagWP)))
	}

	c, err := nfc.New(r.NFC, r.DMA, r.Buf, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Init(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("simulating %s", p.Name)
	return &app{c: c, close: func() error { return nil }}, nil
}
