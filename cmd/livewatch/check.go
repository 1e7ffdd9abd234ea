package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TeamTenuki/livewatch"
	"github.com/TeamTenuki/livewatch/monitor"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Refreshes every monitored channel once and prints the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		providers, release, err := livewatch.Providers(cfg)
		if err != nil {
			return err
		}
		defer release()

		set, err := livewatch.NewSet(ctx, providers)
		if err != nil {
			return err
		}

		refreshEvery, _ := cfg.Intervals()
		c, cancel := context.WithTimeout(ctx, refreshEvery)
		defer cancel()

		report := set.Refresh(c)
		printReport(set, report)

		return set.Save(ctx)
	},
}

func printReport(set *monitor.Set, report monitor.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tSTATE\tVIEWERS\tGAME\tTITLE")

	for _, s := range set.Snapshots() {
		viewers := "-"
		if s.Viewers > 0 {
			viewers = strconv.FormatInt(s.Viewers, 10)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Identifier, s.State, viewers, s.Game, s.Description)
	}
	w.Flush()

	for _, f := range report.Failures {
		fmt.Fprintln(os.Stderr, f.Error())
	}

	if err := report.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
