package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var badCmd = &cobra.Command{
	Use:   "bad",
	Short: "List blocks with a factory bad block marker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		n := 0
		for block := range uint32(a.c.Chip().Blocks) {
			bad, err := a.c.IsBlockBad(block)
			if err != nil {
				return err
			}
			if bad {
				fmt.Printf("%d\t%#x\n", block, uint64(block)*uint64(a.c.BlockSize()))
				n++
			}
		}
		fmt.Printf("%d bad blocks\n", n)
		return nil
	},
}
