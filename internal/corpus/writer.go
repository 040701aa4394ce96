// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/skie/litharvest/pkg/types"
)

const (
	metadataDir  = "metadata"
	fulltextDir  = "fulltext"
	summariesDir = "summaries"
	summaryFile  = "summary.yaml"
)

// Writer lays records out on disk under the corpus root: one metadata
// JSON file per record, and a full-record JSON file (with sections)
// when full text was parsed. Re-collection replaces a record's files
// wholesale, never merges.
type Writer struct {
	root string
}

// NewWriter creates the corpus directory layout under root.
func NewWriter(root string) (*Writer, error) {
	for _, dir := range []string{metadataDir, fulltextDir, summariesDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating corpus directory: %w", err)
		}
	}
	return &Writer{root: root}, nil
}

// Root returns the corpus root directory.
func (w *Writer) Root() string {
	return w.root
}

// WriteRecord persists one record. The metadata file omits section
// bodies so catalog scans stay cheap.
func (w *Writer) WriteRecord(rec *types.Record) error {
	meta := *rec
	meta.Sections = nil
	if err := w.writeJSON(filepath.Join(metadataDir, rec.PMID+".json"), &meta); err != nil {
		return fmt.Errorf("writing metadata for %s: %w", rec.PMID, err)
	}

	if rec.HasFullText() {
		if err := w.writeJSON(filepath.Join(fulltextDir, rec.PMID+".json"), rec); err != nil {
			return fmt.Errorf("writing full text for %s: %w", rec.PMID, err)
		}
	}
	return nil
}

// ReadRecord loads a record's metadata file.
func (w *Writer) ReadRecord(pmid string) (*types.Record, error) {
	data, err := os.ReadFile(filepath.Join(w.root, metadataDir, pmid+".json"))
	if err != nil {
		return nil, err
	}
	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding metadata for %s: %w", pmid, err)
	}
	return &rec, nil
}

// RunSummary is the accounting for one collection run.
type RunSummary struct {
	GeneratedAt time.Time               `yaml:"generated_at"`
	Categories  []types.CategorySummary `yaml:"categories"`
	Totals      SummaryTotals           `yaml:"totals"`
}

// SummaryTotals aggregates the per-category counters.
type SummaryTotals struct {
	Requested int `yaml:"requested"`
	Collected int `yaml:"collected"`
	Duplicate int `yaml:"duplicate"`
	Failed    int `yaml:"failed"`
}

// WriteSummary writes the run accounting to summary.yaml at the corpus
// root, replacing any previous run's summary.
func (w *Writer) WriteSummary(summaries []types.CategorySummary) error {
	run := RunSummary{
		GeneratedAt: time.Now().UTC(),
		Categories:  summaries,
	}
	for _, s := range summaries {
		run.Totals.Requested += s.Requested
		run.Totals.Collected += s.Collected
		run.Totals.Duplicate += s.Duplicate
		run.Totals.Failed += s.Failed
	}

	data, err := yaml.Marshal(&run)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := w.writeBytes(summaryFile, data); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// WriteCategorySummary writes one category's accounting to
// summaries/<category>.yaml as soon as the category completes, so an
// interrupted run still leaves a record per finished category.
func (w *Writer) WriteCategorySummary(s types.CategorySummary) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encoding summary for %s: %w", s.Category, err)
	}
	if err := w.writeBytes(filepath.Join(summariesDir, s.Category+".yaml"), data); err != nil {
		return fmt.Errorf("writing summary for %s: %w", s.Category, err)
	}
	return nil
}

func (w *Writer) writeJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return w.writeBytes(rel, append(data, '\n'))
}

// writeBytes writes through a temp file in the destination directory so
// a crashed run never leaves a truncated file behind.
func (w *Writer) writeBytes(rel string, data []byte) error {
	destPath := filepath.Join(w.root, rel)

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".corpus-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
