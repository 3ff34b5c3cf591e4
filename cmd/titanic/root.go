package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"titanic-survival/internal/cfg"
	"titanic-survival/internal/common"
)

var (
	cfgFile  string
	logLevel string
	pretty   bool

	settings cfg.Settings
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "titanic",
	Short: "Train and serve a Titanic survival model",
	Long: `titanic trains a random forest on the Kaggle Titanic passenger list,
publishes the fitted model together with its encoders and scaler, and serves
survival predictions over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (or set CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs instead of JSON")

	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPredictCmd())
	rootCmd.AddCommand(newHistoryCmd())
}

func initialize(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		if err := os.Setenv(common.EnvConfigFile, cfgFile); err != nil {
			return err
		}
	}

	s, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	settings = s

	if logLevel == "" {
		logLevel = settings.LogLevel
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}
