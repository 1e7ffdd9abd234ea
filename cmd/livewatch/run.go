package main

import (
	"github.com/spf13/cobra"

	"github.com/TeamTenuki/livewatch"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the Discord bot until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return livewatch.Run(ctx, cfg)
	},
}
