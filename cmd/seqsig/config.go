package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage seqsig configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.seqsig.yaml.",
		Example: `  seqsig config                            # show all config
  seqsig config set signature.cutoff 60    # raise the matcher cutoff
  seqsig config set alignment.source fasta # align from a FASTA file
  seqsig config get db                     # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		fmt.Printf("# Config file: %s\n", cfg)
	} else {
		fmt.Println("# No config file, showing defaults. Config file: ~/.seqsig.yaml")
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	// Store integers as numbers, not strings
	if n, err := strconv.Atoi(value); err == nil {
		viper.Set(key, n)
	} else {
		switch value {
		case "true", "yes", "on":
			viper.Set(key, true)
		case "false", "no", "off":
			viper.Set(key, false)
		default:
			viper.Set(key, value)
		}
	}

	// Ensure config file exists
	cfg := viper.ConfigFileUsed()
	if cfg == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfg = filepath.Join(home, configName+".yaml")
	}

	if err := viper.WriteConfigAs(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfg)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}
