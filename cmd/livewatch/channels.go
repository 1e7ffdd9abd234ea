package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TeamTenuki/livewatch"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/stream"
)

func init() {
	rootCmd.AddCommand(addCmd, removeCmd, muteCmd, unmuteCmd, listCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <provider> <channel>",
	Short: "Starts monitoring a channel",
	Args:  cobra.ExactArgs(2),
	RunE: withChannel(func(set *monitor.Set, id stream.Identifier) error {
		if _, err := set.Add(ctx, id); err != nil {
			return err
		}

		fmt.Printf("Added %s\n", id)
		return nil
	}),
}

var removeCmd = &cobra.Command{
	Use:   "remove <provider> <channel>",
	Short: "Stops monitoring a channel",
	Args:  cobra.ExactArgs(2),
	RunE: withChannel(func(set *monitor.Set, id stream.Identifier) error {
		if err := set.Remove(ctx, id); err != nil {
			return err
		}

		fmt.Printf("Removed %s\n", id)
		return nil
	}),
}

var muteCmd = &cobra.Command{
	Use:   "mute <provider> <channel>",
	Short: "Stops reporting a channel going live",
	Args:  cobra.ExactArgs(2),
	RunE: withChannel(func(set *monitor.Set, id stream.Identifier) error {
		return set.Exclude(ctx, id)
	}),
}

var unmuteCmd = &cobra.Command{
	Use:   "unmute <provider> <channel>",
	Short: "Reports a channel going live again",
	Args:  cobra.ExactArgs(2),
	RunE: withChannel(func(set *monitor.Set, id stream.Identifier) error {
		return set.Include(ctx, id)
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists monitored channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSet()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tCHANNEL\tNAME\tMUTED")
		for _, s := range set.Snapshots() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.Identifier.Provider, s.Identifier.ChannelID, s.DisplayName, s.DontNotify)
		}

		if ex := set.Exclusions(); len(ex) > 0 {
			names := make([]string, len(ex))
			for i, id := range ex {
				names[i] = id.String()
			}
			fmt.Fprintf(w, "\nMuted: %s\n", strings.Join(names, ", "))
		}

		return w.Flush()
	},
}

// withChannel identifies the channel named by args and hands it to f
// together with the persisted set.
func withChannel(f func(set *monitor.Set, id stream.Identifier) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		set, err := loadSet()
		if err != nil {
			return err
		}

		id, err := set.Identify(strings.ToLower(args[0]), args[1])
		if err != nil {
			return err
		}

		return f(set, id)
	}
}

func loadSet() (*monitor.Set, error) {
	providers, release, err := livewatch.Providers(cfg)
	if err != nil {
		return nil, err
	}
	release()

	return livewatch.NewSet(ctx, providers)
}
