package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [offset] [size] [file]",
	Short: "Load an image, skipping bad blocks",
	Long:  "Read size bytes starting at the page aligned offset the way the boot loader does: bad blocks are skipped and unrecoverable pages are reported but don't stop the load.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		size, err := parseNumber(args[1])
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		img := make([]byte, size)
		stats, err := a.c.LoadImage(offset, img)
		if err != nil {
			return err
		}
		fmt.Printf("%d pages read, bad blocks %v\n", stats.Pages, stats.BadBlocks)
		if len(stats.FailedPages) > 0 {
			fmt.Fprintf(os.Stderr, "unrecoverable pages: %#x\n", stats.FailedPages)
		}
		return os.WriteFile(args[2], img, 0644)
	},
}
