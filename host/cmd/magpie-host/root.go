package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"magpie/core"
	"magpie/host/hostconfig"

	"github.com/spf13/cobra"
)

var (
	cfg          *hostconfig.Config
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "magpie-host",
	Short: "Host tool for the Magpie bioacoustic recorder",
	Long: `magpie-host receives WAV files a Magpie recorder streams over its USB
storage link, writes them to disk and announces each finished file on NATS.

The simulate command runs the recorder's capture path against a simulated
board, which is useful for checking configurations without hardware.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		explicit := cfgFile != ""
		if !explicit {
			cfgFile = defaultConfigPath()
		}
		var err error
		cfg, err = hostconfig.Load(cfgFile, !explicit)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/magpie.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug, 2=device debug lines")

	rootCmd.AddCommand(receiveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(configCmd)
}

func defaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "magpie.yaml")
}

// setupLogging configures slog based on the verbose level and routes the
// device debug writer into it.
func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))

	core.SetDebugWriter(func(msg string) {
		slog.Debug(msg, "source", "device")
	})
	core.SetDebugEnabled(level >= 2)
}
