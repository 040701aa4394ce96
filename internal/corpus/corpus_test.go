// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/skie/litharvest/pkg/types"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAddAndHas(t *testing.T) {
	idx := openTestIndex(t)

	has, err := idx.Has("100")
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if has {
		t.Error("empty index reports membership")
	}

	inserted, err := idx.Add(IndexEntry{
		PMID: "100", PMCID: "PMC1", Category: "sepsis",
		Query: "sepsis[MeSH]", CollectedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !inserted {
		t.Error("first Add returned false")
	}

	has, err = idx.Has("100")
	if err != nil {
		t.Fatalf("Has after Add: %v", err)
	}
	if !has {
		t.Error("added identifier not found")
	}
}

func TestIndexAddIsIdempotent(t *testing.T) {
	idx := openTestIndex(t)

	entry := IndexEntry{PMID: "200", Category: "sepsis", CollectedAt: time.Now()}
	if _, err := idx.Add(entry); err != nil {
		t.Fatalf("Add: %v", err)
	}

	inserted, err := idx.Add(entry)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if inserted {
		t.Error("duplicate Add reported as inserted")
	}

	n, err := idx.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestIndexCountByCategory(t *testing.T) {
	idx := openTestIndex(t)

	for i, cat := range []string{"sepsis", "sepsis", "pneumonia"} {
		_, err := idx.Add(IndexEntry{
			PMID: string(rune('a' + i)), Category: cat, CollectedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	counts, err := idx.CountByCategory()
	if err != nil {
		t.Fatalf("CountByCategory: %v", err)
	}
	if counts["sepsis"] != 2 || counts["pneumonia"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	idx, err := OpenIndex(dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	if _, err := idx.Add(IndexEntry{PMID: "300", Category: "sepsis", CollectedAt: time.Now()}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	idx.Close()

	idx, err = OpenIndex(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	has, err := idx.Has("300")
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !has {
		t.Error("identifier lost across reopen")
	}
}

func testRecord(pmid string, sections []types.Section) *types.Record {
	return &types.Record{
		PMID:        pmid,
		PMCID:       "PMC" + pmid,
		Title:       "Record " + pmid,
		Authors:     []string{"A. Author"},
		Sections:    sections,
		License:     types.LicenseCCBY,
		Source:      "pubmed_pmc",
		CollectedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func TestWriterSplitsMetadataAndFullText(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	rec := testRecord("400", []types.Section{
		{Heading: "Treatment", Category: "treatment", Body: "Antibiotics."},
	})
	if err := w.WriteRecord(rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	meta, err := w.ReadRecord("400")
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if meta.Title != "Record 400" {
		t.Errorf("title = %q", meta.Title)
	}
	if len(meta.Sections) != 0 {
		t.Error("metadata file carries section bodies")
	}

	full, err := os.ReadFile(filepath.Join(w.Root(), fulltextDir, "400.json"))
	if err != nil {
		t.Fatalf("reading full text file: %v", err)
	}
	if !strings.Contains(string(full), "Antibiotics.") {
		t.Error("full text file missing section body")
	}
}

func TestWriterSkipsFullTextWithoutSections(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := w.WriteRecord(testRecord("500", nil)); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	if _, err := os.Stat(filepath.Join(w.Root(), fulltextDir, "500.json")); !os.IsNotExist(err) {
		t.Error("full text file written for a metadata-only record")
	}
}

func TestWriterOverwritesOnRecollection(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	first := testRecord("600", nil)
	first.Title = "Old title"
	if err := w.WriteRecord(first); err != nil {
		t.Fatalf("first WriteRecord: %v", err)
	}

	second := testRecord("600", nil)
	second.Title = "New title"
	if err := w.WriteRecord(second); err != nil {
		t.Fatalf("second WriteRecord: %v", err)
	}

	rec, err := w.ReadRecord("600")
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec.Title != "New title" {
		t.Errorf("title = %q, record not replaced", rec.Title)
	}
}

func TestWriteSummaryTotals(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	summaries := []types.CategorySummary{
		{Category: "sepsis", Requested: 50, Collected: 28, Duplicate: 10, Failed: 12},
		{Category: "pneumonia", Requested: 20, Collected: 20},
	}
	if err := w.WriteSummary(summaries); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(w.Root(), summaryFile))
	if err != nil {
		t.Fatalf("reading summary: %v", err)
	}

	var run RunSummary
	if err := yaml.Unmarshal(data, &run); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if run.Totals.Requested != 70 || run.Totals.Collected != 48 ||
		run.Totals.Duplicate != 10 || run.Totals.Failed != 12 {
		t.Errorf("totals = %+v", run.Totals)
	}
	if len(run.Categories) != 2 {
		t.Errorf("categories = %d, want 2", len(run.Categories))
	}
}

func TestWriterLeavesNoTempFiles(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteRecord(testRecord("700", nil)); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(w.Root(), metadataDir))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".corpus-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
