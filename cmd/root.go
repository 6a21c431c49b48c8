// Package cmd implements the ace-cli debug tool: a cobra CLI for listing
// the loaded rule cache, simulating a conflict-resolution lookup, and
// decoding a raw GP data-object hex blob.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ace/config"
	"ace/output"
	"ace/terminal"
	"ace/terminal/pcsc"
)

var (
	version = "1.0.0"

	readerName string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ace-cli",
	Short: "GlobalPlatform Access Control Enforcer debug tool",
	Long: `ace-cli v` + version + `
Inspect and simulate GlobalPlatform SE Access Control (ARA-M / ARF) decisions.

This tool supports:
  - Loading and listing the access rule cache from a real terminal
  - Simulating a conflict-resolution lookup against a cached rule set
  - Decoding a raw GP-DO / PKCS#15 hex blob`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&readerName, "reader", "r", "",
		"PC/SC reader name (if empty, uses the only attached reader; fails when several are attached)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"ace.yaml profile path (defaults built in if empty)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadProfile() (config.Profile, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func connectTerminal() (terminal.Terminal, error) {
	if readerName == "" {
		readers, err := pcsc.ListReaders()
		if err != nil {
			return nil, fmt.Errorf("list readers: %w", err)
		}
		if len(readers) == 0 {
			return nil, fmt.Errorf("no PC/SC readers found")
		}
		if len(readers) > 1 {
			output.PrintReaderList(readers)
			return nil, fmt.Errorf("multiple readers found, use -r <name> to select one")
		}
	}

	term, err := pcsc.Open(readerName)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	atr, _ := term.GetATR()
	output.PrintReaderInfo(term.TerminalName(), atr, term.IsCardPresent())
	return term, nil
}
