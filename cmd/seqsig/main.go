// Package main provides the seqsig command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".seqsig"

var (
	cfgFile string
	logger  = zap.NewNop()
)

// usageError marks errors caused by invalid command-line input.
type usageError struct{ error }

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seqsig",
		Short: "Sequence signatures of aligned protein sets",
		Long: `seqsig computes the positional feature differences between a positive and a
negative set of aligned proteins and scores other proteins for similarity to
the positive set.`,
		Example: `  # Load proteins, residues and generic numbers into the store (one-time setup)
  seqsig import --proteins proteins.tsv --residues residues.tsv --numbers generic_numbers.tsv

  # Calculate a signature and save it as a session
  seqsig signature --segments TM3,TM6 --positive adrb2_human,adrb1_human --negative opsd_bovin

  # Score all class A receptors against the saved signature
  seqsig score <session-id> --family 001`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			l, err := newLogger(viper.GetString("log.level"), viper.GetString("log.format"))
			if err != nil {
				return usageError{err}
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.seqsig.yaml)")
	cmd.PersistentFlags().String("db", "", "DuckDB protein store")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	viper.BindPFlag("db", cmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newSignatureCmd())
	cmd.AddCommand(newScoreCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("seqsig version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// setDefaults registers every configuration key with its default.
func setDefaults(home string) {
	dataDir := filepath.Join(home, configName)
	viper.SetDefault("db", filepath.Join(dataDir, "proteins.duckdb"))
	viper.SetDefault("alignment.source", "duckdb")
	viper.SetDefault("alignment.fasta", "")
	viper.SetDefault("alignment.layout", "")
	viper.SetDefault("signature.cutoff", 40)
	viper.SetDefault("score.species", "Human")
	viper.SetDefault("score.workers", 0)
	viper.SetDefault("session.dir", filepath.Join(dataDir, "sessions"))
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

// initConfig reads ~/.seqsig.yaml (or --config) and SEQSIG_* environment
// variables.
func initConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}
	setDefaults(home)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("SEQSIG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// newLogger builds a stderr logger with the given level and encoding
// (console or json).
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	case "json":
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
