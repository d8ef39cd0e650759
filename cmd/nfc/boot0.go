package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/gentam/nfc"
	"github.com/spf13/cobra"
)

var (
	boot0Count int
	boot0Out   string
)

var boot0Cmd = &cobra.Command{
	Use:   "boot0",
	Short: "Access the boot0 area in 1KiB page mode",
}

var boot0ReadCmd = &cobra.Command{
	Use:   "read [page]",
	Short: "Read the first 1KiB of pages as the boot ROM does",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		const n = nfc.Boot0PageSize
		data := make([]byte, boot0Count*n)
		for i := range boot0Count {
			if _, err := a.c.ReadPage1K(uint32(page)+uint32(i), data[i*n:(i+1)*n]); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}

		if boot0Out == "" {
			fmt.Println(hex.Dump(data))
			return nil
		}
		return os.WriteFile(boot0Out, data, 0644)
	},
}

var boot0ProgramCmd = &cobra.Command{
	Use:   "program [page] [file]",
	Short: "Program a file into consecutive pages, 1KiB per page",
	Long:  "Program file into consecutive pages starting at page, 1KiB per page in the boot ROM layout. The pages must be erased.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		buf := make([]byte, nfc.Boot0PageSize)
		for p := uint32(page); len(data) > 0; p++ {
			n := copy(buf, data)
			for i := n; i < len(buf); i++ {
				buf[i] = 0xff
			}
			if err := a.c.ProgramPage1K(p, buf); err != nil {
				return err
			}
			data = data[n:]
		}
		fmt.Println("done")
		return nil
	},
}

func init() {
	boot0ReadCmd.Flags().IntVarP(&boot0Count, "count", "n", 1, "number of pages to read")
	boot0ReadCmd.Flags().StringVarP(&boot0Out, "output", "o", "", "output file (default: hexdump)")
	boot0Cmd.AddCommand(boot0ReadCmd, boot0ProgramCmd)
}
