package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lclock",
	Short: "lclock simulates a set of independently-clocked machines " +
		"maintaining Lamport logical clocks.",
	Long: `lclock simulates a small distributed system of machines that tick ` +
		`at different wall-clock rates, exchange logical clock values, and ` +
		`record one event per tick. The recorded traces expose clock drift, ` +
		`clock jumps, and queue buildup between fast and slow machines.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// A .env file, if present, provides defaults for the LCLOCK_*
		// environment overrides.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
