package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openrig/trialctl"
)

var validateCmd = &cobra.Command{
	Use:   "validate <template.yaml>",
	Short: "Validate a session template and export its name maps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sm, err := trialctl.BuildTemplate(args[0])
		if err != nil {
			return err
		}
		// Finalization runs the matrix validation.
		if _, err := sm.Matrix(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s: OK\n", args[0])

		names, _ := cmd.Flags().GetBool("names")
		if names {
			return sm.EncodeNames(os.Stdout)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("names", false, "Print the event/output/state name maps as YAML")
	rootCmd.AddCommand(validateCmd)
}
