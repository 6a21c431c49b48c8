package cmd

import (
	"github.com/spf13/cobra"

	"ace/enforcer"
	"ace/output"
	"ace/pkgmanager"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Load and list the access rule cache from a terminal",
	Run:   runRulesList,
}

var loadAtStartup bool

func init() {
	rulesCmd.Flags().BoolVar(&loadAtStartup, "load-all", true,
		"bulk-load the ARA [All] rule set at startup (when false, only the refresh tag is read and no rules are loaded)")
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(_ *cobra.Command, _ []string) {
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
	if err := e.Initialize(loadAtStartup); err != nil {
		output.PrintError("initialise: " + err.Error())
		return
	}
	output.PrintSuccess("ACE initialised: state=" + e.State().String())

	tag, hasTag := e.RefreshTag()
	output.PrintRuleEntries(e.Cache(), tag, hasTag)
}
