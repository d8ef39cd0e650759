package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var programCmd = &cobra.Command{
	Use:   "program [page] [file]",
	Short: "Program pages from a file",
	Long:  "Program consecutive pages, starting at page, with the contents of file. The pages must be erased. The last page is padded with 0xFF.",
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

		ps := a.c.PageSize()
		buf := make([]byte, ps)
		for p := uint32(page); len(data) > 0; p++ {
			n := copy(buf, data)
			for i := n; i < ps; i++ {
				buf[i] = 0xff
			}
			if err := a.c.ProgramPage(p, buf); err != nil {
				return err
			}
			data = data[n:]
		}
		fmt.Println("done")
		return nil
	},
}
