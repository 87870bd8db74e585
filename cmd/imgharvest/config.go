package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgharvest/pkg/auth"
	"imgharvest/pkg/config"
	"imgharvest/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration to imgharvest.yaml, or to the path
given with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging the file, .env files,
environment variables and defaults. The database password is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "imgharvest.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess(cmd.OutOrStdout(), "Configuration file created: "+path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Metadata.Store.Password != "" {
		display.Metadata.Store.Password = auth.MaskPassword(display.Metadata.Store.Password)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ui.PrintSuccess(out, "Configuration is valid")
	ui.PrintInfo(out, "Provider", cfg.Search.Provider)
	ui.PrintInfo(out, "Keywords", fmt.Sprintf("%d", len(cfg.Search.Keywords)))
	ui.PrintInfo(out, "Per keyword", fmt.Sprintf("%d", cfg.Search.PerKeyword))
	ui.PrintInfo(out, "Output", cfg.Output.Directory)
	ui.PrintInfo(out, "Attempts", fmt.Sprintf("%d", cfg.RetryAttempts()))
	if cfg.Metadata.Enabled {
		ui.PrintInfo(out, "Metadata store", cfg.Metadata.Store.Driver)
	}
	return nil
}
