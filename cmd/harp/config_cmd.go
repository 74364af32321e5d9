package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hackutd/harp-sub000/internal/config"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get and set harp configuration",
		Long:  "Inspect or modify the harp config file. Keys use dotted TOML names, e.g. client.server.",
	}

	cmd.AddCommand(configGetCmd())
	cmd.AddCommand(configSetCmd())
	cmd.AddCommand(configListCmd())
	cmd.AddCommand(configPathCmd())

	return cmd
}

func configGetCmd() *cobra.Command {
	var showSecret bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			val, err := config.GetConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			if config.IsSensitiveKey(args[0]) && !showSecret {
				val = config.MaskValue(val)
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSecret, "show-secret", false, "print secret values unmasked")

	return cmd
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigKey(configPath, args[0], args[1])
		},
	}
}

func configListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configuration values (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printKeyValues(cmd.OutOrStdout(), config.ListConfigKeys(cfg))
			fmt.Fprintf(cmd.OutOrStdout(), "admins=%d\n", len(cfg.Admins))
			return nil
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath)
		},
	}
}

func printKeyValues(w io.Writer, kvs []config.KeyValue) {
	for _, kv := range kvs {
		fmt.Fprintf(w, "%s=%s\n", kv.Key, kv.Value)
	}
}

// setConfigKey updates key in the file at path. Environment overrides are
// not applied first, so values from .env or HARP_* never leak into the
// file.
func setConfigKey(path, key, value string) error {
	cfg := config.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := config.SetConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.SaveGlobalTo(path, cfg)
}
