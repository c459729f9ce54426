package main

import (
	"fmt"
	"os"

	"magpie/config"
	"magpie/host/hostconfig"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective host configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.Marshal()
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default host configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(cfgFile); err == nil && !force {
			return fmt.Errorf("%s exists, use --force to overwrite", cfgFile)
		}
		if err := hostconfig.Save(cfgFile, hostconfig.Default()); err != nil {
			return err
		}
		fmt.Println("wrote", cfgFile)
		return nil
	},
}

var configDeviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Print the default device JSON configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.DefaultConfig().Marshal()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configDeviceCmd)
}
