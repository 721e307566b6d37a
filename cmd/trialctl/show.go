package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openrig/trialctl"
)

var showCmd = &cobra.Command{
	Use:   "show <template.yaml>",
	Short: "Print the state matrix assembled from a session template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sm, err := trialctl.BuildTemplate(args[0])
		if err != nil {
			return err
		}
		fmt.Print(sm.String())

		report, err := sm.Analyze()
		if err != nil {
			return err
		}
		fmt.Printf("\n%d states, %d events", report.NumStates, report.NumEvents)
		if !report.FullyConnected {
			fmt.Printf("; unreachable states: %v", report.Unreachable)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
