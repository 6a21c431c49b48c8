package cmd

import (
	"github.com/spf13/cobra"

	"ace/output"
	"ace/terminal/pcsc"
)

var readersCmd = &cobra.Command{
	Use:   "readers",
	Short: "List attached PC/SC smart-card readers",
	Run:   runReaders,
}

func init() {
	rootCmd.AddCommand(readersCmd)
}

func runReaders(_ *cobra.Command, _ []string) {
	readers, err := pcsc.ListReaders()
	if err != nil {
		output.PrintError(err.Error())
		return
	}
	output.PrintReaderList(readers)
}
