package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openrig/trialctl/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "trialctl",
	Short: "trialctl runs timed behavioral trials from a session template",
	Long: `trialctl drives a state machine for behavioral experiments: states
transition on sensor pokes or per-state timeouts and actuate outputs
(valves, LEDs, sound triggers) on entry. Session templates are YAML
files describing the rig's channels and the trial's states.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return logging.New(level)
}
