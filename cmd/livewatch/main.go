package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TeamTenuki/livewatch/config"
	"github.com/TeamTenuki/livewatch/db"
)

var cmdline struct {
	config string
	db     string
}

// Set up by the root command before any subcommand runs.
var (
	cfg *config.Config
	ctx context.Context
)

var rootCmd = &cobra.Command{
	Use:   "livewatch",
	Short: "Watches streaming channels and reports them going live",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		cfg, err = config.Parse(cmdline.config)
		if err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}

		if err := db.Init(cmdline.db); err != nil {
			return fmt.Errorf("failed to initialise DB: %w", err)
		}

		ctx = db.NewContext(cmd.Context())
		db.SetupDB(ctx)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return db.Close()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmdline.config, "config", "", "Path to a configuration file containing API keys.")
	rootCmd.PersistentFlags().StringVar(&cmdline.db, "db", "", "Path to a SQLite DB file to persist data.")
}

func main() {
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(c); err != nil {
		log.Printf("ERROR: %s", err)
		stop()
		os.Exit(1)
	}
}
