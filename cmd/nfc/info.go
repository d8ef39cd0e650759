package main

import (
	"fmt"

	"github.com/gentam/nfc"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Identify the NAND chip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		p := a.c.Chip()
		fmt.Printf("Chip:            %s\n", p.Name)
		fmt.Printf("ID:              % X\n", a.c.ID())
		fmt.Printf("Page size:       %d\n", p.PageSize())
		fmt.Printf("Pages per block: %d\n", p.PagesPerBlock())
		fmt.Printf("Blocks:          %d (%d MiB)\n", p.Blocks, p.Size()>>20)
		fmt.Printf("ECC:             mode %d, %d bits/1KiB\n", p.ECCMode, nfc.ECCStrength(p.ECCMode))
		fmt.Printf("Max clock:       %s\n", p.MaxClock)

		rr := a.c.RetryPolicy()
		if len(rr.Registers) == 0 {
			fmt.Printf("Read retry:      none\n")
			return nil
		}
		fmt.Printf("Read retry:      %d steps, registers % x\n", rr.Steps, rr.Registers)
		for s := range rr.Steps {
			fmt.Printf("  %d: % x\n", s, rr.StepValues(s))
		}
		return nil
	},
}
