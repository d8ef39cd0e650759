package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	readCount int
	readOut   string
)

var readCmd = &cobra.Command{
	Use:   "read [page]",
	Short: "Read pages with ECC and read retry",
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

		ps := a.c.PageSize()
		data := make([]byte, readCount*ps)
		for i := range readCount {
			p := uint32(page) + uint32(i)
			res, err := a.c.ReadPageWithRetry(p, data[i*ps:(i+1)*ps])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			glog.V(1).Infof("page %#x: %v, step %d, %d bits corrected, %d sectors near limit",
				p, res.Outcome, res.Step, res.Corrected, res.NearLimit)
		}

		if readOut == "" {
			fmt.Println(hex.Dump(data))
			return nil
		}
		return os.WriteFile(readOut, data, 0644)
	},
}

func init() {
	readCmd.Flags().IntVarP(&readCount, "count", "n", 1, "number of pages to read")
	readCmd.Flags().StringVarP(&readOut, "output", "o", "", "output file (default: hexdump)")
}
