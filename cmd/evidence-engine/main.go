// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the evidence-engine CLI.
package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/logging"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// closeLog flushes the log file opened in PersistentPreRunE.
var closeLog = func() error { return nil }

// rootCmd is the base command for the evidence-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "evidence-engine",
	Short: "Gather dated, cited web evidence for a question",
	Long: `evidence-engine turns a free-text question into a ranked, deduplicated set
of source quotes and, optionally, a report whose inline citations deep-link to
the quoted text on each source page.

Keys are read from .secrets/ (exa-api-key, anthropic-api-key, openai-api-key),
then from the environment (EXA_API_KEY, ANTHROPIC_API_KEY, OPENAI_API_KEY).
A .env file in the working directory is loaded first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.LoadDotenv(".env"); err != nil {
			return err
		}
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s

		logCfg := types.LogConfig{
			Level: viper.GetString("log.level"),
			File:  viper.GetString("log.file"),
		}
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			logCfg.Level = "debug"
		}
		logger, cleanup, err := logging.Setup(logCfg, os.Stderr)
		if err != nil {
			return err
		}
		closeLog = cleanup
		setLogger(logger)

		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./evidence-engine.yaml or ~/.config/evidence-engine/evidence-engine.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidence-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidence-engine"))
		}
	}

	setDefaults(viper.GetViper(), types.DefaultPipelineConfig())
	viper.SetEnvPrefix("EVIDENCE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger().Info("using config file", "path", viper.ConfigFileUsed())
	}
}

func main() {
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}
