package cmd

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"ace/enforcer"
	"ace/output"
	"ace/pkgmanager"
)

var (
	simAidHex    string
	simHashHexes []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Load the rule cache from a terminal and simulate an access decision for one AID/cert-hash set",
	Run:   runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simAidHex, "aid", "",
		"target AID as hex (empty selects the default application)")
	simulateCmd.Flags().StringSliceVar(&simHashHexes, "hash", nil,
		"one or more 20-byte SHA-1 certificate hashes as hex (repeatable)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(_ *cobra.Command, _ []string) {
	aid, err := hex.DecodeString(simAidHex)
	if err != nil {
		output.PrintError("bad --aid hex: " + err.Error())
		return
	}

	hashes := make([][]byte, 0, len(simHashHexes))
	for _, hs := range simHashHexes {
		h, err := hex.DecodeString(hs)
		if err != nil {
			output.PrintError("bad --hash hex: " + err.Error())
			return
		}
		hashes = append(hashes, h)
	}

	term, err := connectTerminal()
	if err != nil {
		output.PrintError(err.Error())
		return
	}

	profile, err := loadProfile()
	if err != nil {
		output.PrintError(err.Error())
		return
	}

	e := enforcer.New(term, pkgmanager.NewStatic(nil), profile)
	if err := e.Initialize(true); err != nil {
		output.PrintError("initialise: " + err.Error())
		return
	}

	ca, found := e.Lookup(aid, hashes)
	output.PrintAccessDecision(aid, hashes, ca, found)
}
