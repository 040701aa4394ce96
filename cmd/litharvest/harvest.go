// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skie/litharvest/internal/corpus"
	"github.com/skie/litharvest/internal/eutils"
	"github.com/skie/litharvest/internal/harvest"
	"github.com/skie/litharvest/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect literature into the corpus",
	Long: `Harvest runs the collection pipeline for one ad-hoc query (--query) or a
category file (--categories). Categories run in order; a category whose
search fails is recorded and skipped, it never aborts the run. Identifiers
already in the corpus index are skipped, so interrupted runs can simply be
restarted.

The command exits non-zero only when no category completes.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("query", "", "ad-hoc search term (alternative to --categories)")
	harvestCmd.Flags().String("categories", "", "YAML file defining the categories to collect")
	harvestCmd.Flags().StringP("output", "o", "corpus", "corpus directory")
	harvestCmd.Flags().Int("max-results", 100, "maximum identifiers per category")
	harvestCmd.Flags().Bool("pilot", false, "pilot run: cap every category at --pilot-results")
	harvestCmd.Flags().Int("pilot-results", 100, "per-category cap in pilot mode")
	harvestCmd.Flags().String("api-key", "", "NCBI API key (default: .secrets/ncbi-api-key)")
	harvestCmd.Flags().String("email", "", "contact email sent with every request (default: .secrets/ncbi-email)")
	harvestCmd.Flags().Float64("rate", 0, "requests per second (default: 3, or 10 with an API key)")
	harvestCmd.Flags().Duration("timeout", 60*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(harvestCmd)
}

// resolveCorpusDir applies precedence for the corpus directory: an
// explicit --output flag wins, then the config file's corpus_dir, then
// the flag default.
func resolveCorpusDir(cmd *cobra.Command) string {
	corpusDir, _ := cmd.Flags().GetString("output")
	if !cmd.Flags().Changed("output") {
		if v := viper.GetString("corpus_dir"); v != "" {
			corpusDir = v
		}
	}
	return corpusDir
}

func runHarvest(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	categoryFile, _ := cmd.Flags().GetString("categories")

	var categories []harvest.Category
	switch {
	case query != "" && categoryFile != "":
		return fmt.Errorf("--query and --categories are mutually exclusive")
	case query != "":
		categories = harvest.FromQuery(query)
	case categoryFile != "":
		var err error
		categories, err = harvest.Categories(categoryFile)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --query or --categories is required")
	}

	corpusDir := resolveCorpusDir(cmd)
	maxResults, _ := cmd.Flags().GetInt("max-results")
	pilot, _ := cmd.Flags().GetBool("pilot")
	pilotResults, _ := cmd.Flags().GetInt("pilot-results")
	apiKey, _ := cmd.Flags().GetString("api-key")
	email, _ := cmd.Flags().GetString("email")
	rate, _ := cmd.Flags().GetFloat64("rate")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	eutilsCfg := types.EutilsConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: "litharvest/" + version,
		},
		APIKey:        secretDefault("ncbi-api-key", apiKey),
		Email:         secretDefault("ncbi-email", email),
		RatePerSecond: rate,
	}
	harvestCfg := types.HarvestConfig{
		CorpusDir:    corpusDir,
		MaxResults:   maxResults,
		Pilot:        pilot,
		PilotResults: pilotResults,
	}

	index, err := corpus.OpenIndex(corpusDir)
	if err != nil {
		return err
	}
	defer index.Close()

	writer, err := corpus.NewWriter(corpusDir)
	if err != nil {
		return err
	}

	client := eutils.NewClient(&http.Client{Timeout: eutilsCfg.Timeout}, eutilsCfg)
	h := harvest.New(client, index, writer, harvestCfg, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := h.Run(ctx, categories)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run stopped: %v\n", err)
	}

	for _, s := range result.Summaries {
		fmt.Printf("%-20s %-9s requested=%d collected=%d duplicate=%d failed=%d\n",
			s.Category, s.State, s.Requested, s.Collected, s.Duplicate, s.Failed)
	}

	if !result.Succeeded() {
		return fmt.Errorf("no category completed")
	}
	return nil
}
