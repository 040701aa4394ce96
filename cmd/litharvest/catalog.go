// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/skie/litharvest/internal/corpus"
	"github.com/skie/litharvest/internal/harvest"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Write a catalog of the collected corpus",
	Long: `Catalog scans the corpus index and metadata files and writes catalog.yaml
at the corpus root: per-category yields plus one row per record with its
identifiers, title, year, license, and full-text availability.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		corpusDir := resolveCorpusDir(cmd)

		index, err := corpus.OpenIndex(corpusDir)
		if err != nil {
			return err
		}
		defer index.Close()

		writer, err := corpus.NewWriter(corpusDir)
		if err != nil {
			return err
		}

		cat, err := harvest.BuildCatalog(index, writer)
		if err != nil {
			return err
		}

		fmt.Printf("%d records\n", cat.TotalRecords)
		names := make([]string, 0, len(cat.ByCategory))
		for name := range cat.ByCategory {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-20s %d\n", name, cat.ByCategory[name])
		}
		return nil
	},
}

func init() {
	catalogCmd.Flags().StringP("output", "o", "corpus", "corpus directory")
	rootCmd.AddCommand(catalogCmd)
}
