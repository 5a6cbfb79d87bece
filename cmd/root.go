package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/imbui/internal/config"
	"github.com/conneroisu/imbui/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imbui",
	Short: "Render and preview tagged-template scenes",
	Long: `imbui compiles tagged HTML templates into live DOM and keeps that DOM in
sync as values change, touching only the nodes whose values differ.

A scene file names templates and lists frames of values. imbui replays the
frames against one container and reports what each render changed.

Quick Start:
  imbui render scene.yml          Print every frame
  imbui inspect scene.yml         Show compiled templates and their parts
  imbui serve scene.yml           Preview frames live in the browser`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .imbui.yml, can also use IMBUI_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the config file and IMBUI_ environment
// variables. A --config flag wins over IMBUI_CONFIG_FILE, which wins over
// .imbui.yml in the working directory. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("IMBUI_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".imbui")
	}

	// IMBUI_SERVER_PORT, IMBUI_PREVIEW_INTERVAL, ...
	viper.SetEnvPrefix("IMBUI")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and the logger it describes.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// commandContext returns the command's context, which is nil when a run
// function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
