// Command nfc reads raw NAND through the sunxi NAND flash controller.
package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	flagSim        bool
	flagSimChip    string
	flagSimImage   string
	flagWP         string
	flagDMAChannel int
)

var rootCmd = &cobra.Command{
	Use:          "nfc",
	Short:        "Raw NAND access through the sunxi NAND flash controller",
	Long:         "Identify, read and load images from the raw NAND chip attached to an Allwinner A10/A20 NFC. Needs access to /dev/mem unless --sim is given.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog checks that the standard flag set was parsed.
		return flag.CommandLine.Parse(nil)
	},
}

func parseNumber(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

func main() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().BoolVar(&flagSim, "sim", false, "use a simulated controller and chip")
	rootCmd.PersistentFlags().StringVar(&flagSimChip, "sim-chip", "H27UCG8T2E", "chip model to simulate")
	rootCmd.PersistentFlags().StringVar(&flagSimImage, "sim-image", "", "file programmed into the simulated chip from page 0")
	rootCmd.PersistentFlags().StringVar(&flagWP, "wp", "", "GPIO driving the chip's WP# line")
	rootCmd.PersistentFlags().IntVar(&flagDMAChannel, "dma-channel", 0, "dedicated DMA channel")

	rootCmd.AddCommand(infoCmd, readCmd, loadCmd, badCmd, programCmd, boot0Cmd)

	if err := rootCmd.Execute(); err != nil {
		glog.Exit(err)
	}
}
