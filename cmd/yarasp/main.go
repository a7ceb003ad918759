package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yarasp/yarasp-go/cmd/yarasp/commands"
	"github.com/yarasp/yarasp-go/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "yarasp",
	Short: "Yandex Raspisaniya schedule API CLI",
	Long: `A command-line interface for the Yandex Raspisaniya (transport schedule) API v3.0.

Responses are cached and every live request is counted against a daily
limit, so repeated lookups cost nothing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.yarasp/config.yml)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every response with its size and cache status")
	rootCmd.PersistentFlags().Bool("debug", false, "log HTTP requests and responses")
	rootCmd.PersistentFlags().Bool("cache-only", false, "serve from cache only, never call the API")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag(config.KeyDebug, rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag(config.KeyCacheOnly, rootCmd.PersistentFlags().Lookup("cache-only"))

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewSearchCommand())
	rootCmd.AddCommand(commands.NewScheduleCommand())
	rootCmd.AddCommand(commands.NewThreadCommand())
	rootCmd.AddCommand(commands.NewNearestStationsCommand())
	rootCmd.AddCommand(commands.NewNearestSettlementCommand())
	rootCmd.AddCommand(commands.NewCarrierCommand())
	rootCmd.AddCommand(commands.NewStationsListCommand())
	rootCmd.AddCommand(commands.NewCopyrightCommand())
	rootCmd.AddCommand(commands.NewGetCommand())
	rootCmd.AddCommand(commands.NewUsageCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
}

func initConfig() {
	v := viper.GetViper()
	config.Configure(v)

	path, err := commands.ConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}

	err = config.ReadFile(v, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)

		return
	}

	if _, statErr := os.Stat(path); statErr == nil && config.ParseFlag(v.GetString(config.KeyVerbose)) {
		fmt.Fprintln(os.Stderr, "Using config file:", path)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
