// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/skie/litharvest/internal/corpus"
	"github.com/skie/litharvest/pkg/types"
)

// Catalog is the corpus inventory written to catalog.yaml: one row per
// collected record plus per-category yields.
type Catalog struct {
	GeneratedAt  time.Time      `yaml:"generated_at"`
	TotalRecords int            `yaml:"total_records"`
	ByCategory   map[string]int `yaml:"by_category"`
	Records      []CatalogRow   `yaml:"records"`
}

// CatalogRow summarizes one record without its content.
type CatalogRow struct {
	PMID       string        `yaml:"pmid"`
	PMCID      string        `yaml:"pmcid,omitempty"`
	Category   string        `yaml:"category"`
	Title      string        `yaml:"title"`
	Year       int           `yaml:"year,omitempty"`
	License    types.License `yaml:"license"`
	Commercial bool          `yaml:"commercial_use"`
	FullText   bool          `yaml:"full_text"`
}

// BuildCatalog scans the corpus index and metadata files and writes
// catalog.yaml at the corpus root. Records whose metadata file is
// missing or unreadable are listed from the index alone.
func BuildCatalog(index corpus.Index, writer *corpus.Writer) (*Catalog, error) {
	entries, err := index.Entries()
	if err != nil {
		return nil, fmt.Errorf("reading corpus index: %w", err)
	}
	byCategory, err := index.CountByCategory()
	if err != nil {
		return nil, fmt.Errorf("counting corpus index: %w", err)
	}

	cat := &Catalog{
		GeneratedAt:  time.Now().UTC(),
		TotalRecords: len(entries),
		ByCategory:   byCategory,
	}

	for _, e := range entries {
		row := CatalogRow{
			PMID:     e.PMID,
			PMCID:    e.PMCID,
			Category: e.Category,
			License:  types.LicenseUnknown,
		}
		if rec, err := writer.ReadRecord(e.PMID); err == nil {
			row.Title = rec.Title
			row.Year = rec.PubDate.Year
			row.License = rec.License
			row.Commercial = rec.License.AllowsCommercialUse()
			if rec.PMCID != "" {
				row.PMCID = rec.PMCID
			}
		}
		if _, err := os.Stat(filepath.Join(writer.Root(), "fulltext", e.PMID+".json")); err == nil {
			row.FullText = true
		}
		cat.Records = append(cat.Records, row)
	}

	data, err := yaml.Marshal(cat)
	if err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	if err := os.WriteFile(filepath.Join(writer.Root(), "catalog.yaml"), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing catalog: %w", err)
	}
	return cat, nil
}
