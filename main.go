/*
Pickpath replays warehouse pick orders on a grid. Orders arrive from the order service over
a websocket; each carries a sparse route through the warehouse. Selecting an order expands
its route into a cell-by-cell path and animates a worker walking it, coloring pickup cells
as visited or pending, in every browser tab connected to the server. The replay subcommand
does the same in a terminal.
*/

package main

import (
	"fmt"
	"log/slog"
	"os"

	"pickpath/config"
	"pickpath/logging"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	logJSON    bool
	feedURL    string
)

var rootCmd = &cobra.Command{
	Use:   "pickpath",
	Short: "Visualize warehouse pick orders",
	Long: `Pickpath receives pick orders from the order service and animates each order's
route over the warehouse grid, in the browser or the terminal.

Running pickpath without a subcommand serves the browser view.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Config file; optional unless set explicitly")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON lines instead of text")
	rootCmd.PersistentFlags().StringVar(&feedURL, "feed", "", "Order service websocket URL")

	addServeFlags(rootCmd)
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd, replayCmd, sendCmd)
}

// loadConfig reads the config file and applies the flags the user set over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") && debug {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = logJSON
	}
	if flags.Changed("feed") {
		cfg.Feed.URL = feedURL
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, cfg.Log.JSON), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
