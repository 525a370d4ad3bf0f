package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/MKJM2/cs2620-logical-clocks/analysis"
	"github.com/MKJM2/cs2620-logical-clocks/recording"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <trace.sqlite3>",
	Short: "Summarize a recorded event trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		reader, err := recording.OpenTrace(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		records, err := reader.Events(context.Background())
		if err != nil {
			return err
		}

		analysis.Summarize(records).Write(os.Stdout)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
