// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litharvest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skie/litharvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the litharvest CLI.
var rootCmd = &cobra.Command{
	Use:   "litharvest",
	Short: "Bulk harvester for open-access biomedical literature",
	Long: `litharvest collects open-access biomedical literature in bulk: it searches
the PubMed abstract database, translates matches to their PMC full-text
identifiers, fetches full text in batches, parses each article into a
structured record, and persists records into a deduplicated corpus.

Runs are resumable: every collected identifier is registered in the corpus
index and skipped by later runs. Requests are rate limited to the service's
published ceilings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litharvest.yaml or ~/.config/litharvest/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litharvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litharvest"))
		}
	}

	viper.SetEnvPrefix("LITHARVEST")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
