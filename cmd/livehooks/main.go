package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/internal/config"
	"github.com/vango-dev/livehooks/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "livehooks",
		Short: "Headless live-page client and companion server",
		Long: `livehooks runs server-rendered live pages without a browser.

  • serve    render the demo page and accept live connections
  • connect  load a page, open its live socket and run its hooks
  • exec     ask connected clients to focus, blur, click, reset or submit`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to livehooks.yaml (default: ./livehooks.yaml if present)")

	load := func() (*config.Config, error) {
		var cfg *config.Config
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load(".")
		}
		if err != nil {
			return nil, err
		}
		slog.SetDefault(cfg.Logger(os.Stderr))
		return cfg, nil
	}

	rootCmd.AddCommand(
		serveCmd(load),
		connectCmd(load),
		execCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
