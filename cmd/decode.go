package cmd

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"ace/output"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a raw GP-DO / PKCS#15 hex blob as a flat BER-TLV walk",
	Args:  cobra.ExactArgs(1),
	Run:   runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(_ *cobra.Command, args []string) {
	raw, err := hex.DecodeString(args[0])
	if err != nil {
		output.PrintError("bad hex: " + err.Error())
		return
	}
	if err := output.PrintTLVTree(raw); err != nil {
		output.PrintError("decode: " + err.Error())
	}
}
