// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/skie/litharvest/internal/corpus"
	"github.com/skie/litharvest/internal/eutils"
	"github.com/skie/litharvest/internal/jats"
	"github.com/skie/litharvest/pkg/types"
)

// Harvester runs the collection pipeline against a corpus.
type Harvester struct {
	client *eutils.Client
	index  corpus.Index
	writer *corpus.Writer
	cfg    types.HarvestConfig
	out    io.Writer
}

// New assembles a Harvester. Progress and warnings go to out.
func New(client *eutils.Client, index corpus.Index, writer *corpus.Writer, cfg types.HarvestConfig, out io.Writer) *Harvester {
	return &Harvester{
		client: client,
		index:  index,
		writer: writer,
		cfg:    cfg,
		out:    out,
	}
}

// RunResult carries the per-category accounting of one run.
type RunResult struct {
	Summaries []types.CategorySummary
}

// Succeeded reports whether at least one category was fully persisted.
// The process exit code derives from this.
func (r RunResult) Succeeded() bool {
	for _, s := range r.Summaries {
		if s.State == types.StatePersisted {
			return true
		}
	}
	return false
}

// Run collects every category in order. A category whose search fails
// is marked failed and the run moves on; only context cancellation
// stops the run early. The summary file is written even on early stop
// so a partial run remains inspectable.
func (h *Harvester) Run(ctx context.Context, categories []Category) (RunResult, error) {
	var result RunResult

	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			h.writeSummary(result)
			return result, err
		}
		summary := h.runCategory(ctx, cat)
		if err := h.writer.WriteCategorySummary(summary); err != nil {
			fmt.Fprintf(h.out, "warning: %v\n", err)
		}
		result.Summaries = append(result.Summaries, summary)
	}

	if err := h.writeSummary(result); err != nil {
		return result, err
	}
	return result, nil
}

func (h *Harvester) writeSummary(result RunResult) error {
	if len(result.Summaries) == 0 {
		return nil
	}
	if err := h.writer.WriteSummary(result.Summaries); err != nil {
		fmt.Fprintf(h.out, "warning: writing summary: %v\n", err)
		return err
	}
	return nil
}

// runCategory walks one category through the pipeline states. Every
// requested identifier ends up counted exactly once across Collected,
// Duplicate, and Failed.
func (h *Harvester) runCategory(ctx context.Context, cat Category) types.CategorySummary {
	summary := types.CategorySummary{
		Category:  cat.Name,
		Query:     cat.Query.BuildTerm(),
		State:     types.StateSearching,
		StartedAt: time.Now().UTC(),
	}
	fmt.Fprintf(h.out, "category %s: searching\n", cat.Name)

	ids, total, err := h.client.Search(ctx, cat.Query, h.cfg.Cap())
	if err != nil {
		summary.Requested = len(ids)
		summary.Failed = len(ids)
		summary.State = types.StateFailed
		summary.Error = err.Error()
		summary.FinishedAt = time.Now().UTC()
		fmt.Fprintf(h.out, "category %s: search failed: %v\n", cat.Name, err)
		return summary
	}
	summary.Requested = len(ids)
	fmt.Fprintf(h.out, "category %s: %d of %d matches requested\n", cat.Name, len(ids), total)

	// Resume support: identifiers already in the corpus skip the rest
	// of the pipeline.
	var fresh []string
	for _, pmid := range ids {
		has, err := h.index.Has(pmid)
		if err != nil {
			fmt.Fprintf(h.out, "warning: index lookup for %s: %v\n", pmid, err)
			summary.Failed++
			continue
		}
		if has {
			summary.Duplicate++
			continue
		}
		fresh = append(fresh, pmid)
	}
	if summary.Duplicate > 0 {
		fmt.Fprintf(h.out, "category %s: %d already collected\n", cat.Name, summary.Duplicate)
	}

	summary.State = types.StateTranslating
	mapping := h.client.TranslateIDs(ctx, fresh, h.out)
	summary.Translated = len(mapping)

	summary.State = types.StateFetching
	pmcids := make([]string, 0, len(mapping))
	for _, pmid := range fresh {
		if pmcid, ok := mapping[pmid]; ok {
			pmcids = append(pmcids, pmcid)
		}
	}
	docs := h.client.FetchFullText(ctx, pmcids, h.out)
	summary.Fetched = len(docs)
	fmt.Fprintf(h.out, "category %s: %d translated, %d fetched\n",
		cat.Name, summary.Translated, summary.Fetched)

	summary.State = types.StateParsing
	for _, pmid := range fresh {
		pmcid, ok := mapping[pmid]
		if !ok {
			summary.Failed++
			continue
		}
		doc, ok := docs[pmcid]
		if !ok {
			fmt.Fprintf(h.out, "warning: no full text returned for %s (%s)\n", pmid, pmcid)
			summary.Failed++
			continue
		}

		rec, err := jats.Parse(doc, pmid)
		if err != nil {
			fmt.Fprintf(h.out, "warning: %v\n", err)
			summary.Failed++
			continue
		}
		summary.Parsed++
		if rec.PMCID == "" {
			rec.PMCID = pmcid
		}

		if err := h.persist(cat, rec, &summary); err != nil {
			fmt.Fprintf(h.out, "warning: persisting %s: %v\n", pmid, err)
			summary.Failed++
		}
	}

	summary.State = types.StatePersisted
	summary.FinishedAt = time.Now().UTC()
	fmt.Fprintf(h.out, "category %s: %d collected, %d duplicate, %d failed\n",
		cat.Name, summary.Collected, summary.Duplicate, summary.Failed)
	return summary
}

// persist writes the record and registers it in the index. A losing
// race on the index insert counts as a duplicate, not a failure.
func (h *Harvester) persist(cat Category, rec *types.Record, summary *types.CategorySummary) error {
	if err := h.writer.WriteRecord(rec); err != nil {
		return err
	}
	inserted, err := h.index.Add(corpus.IndexEntry{
		PMID:        rec.PMID,
		PMCID:       rec.PMCID,
		Category:    cat.Name,
		Query:       summary.Query,
		CollectedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if inserted {
		summary.Collected++
	} else {
		summary.Duplicate++
	}
	return nil
}
