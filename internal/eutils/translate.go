// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/skie/litharvest/pkg/types"
)

// idconv JSON response structures. A record without a pmcid (or marked
// not live) has no full-text counterpart.
type idconvResponse struct {
	Records []idconvRecord `json:"records"`
}

type idconvRecord struct {
	PMID  string `json:"pmid"`
	PMCID string `json:"pmcid"`
	Live  string `json:"live"`
}

// TranslateIDs maps source identifiers (PMIDs) to full-text repository
// identifiers (PMCIDs) via the ID converter service. Input is chunked
// to stay under the service's batch ceiling, one rate-limited call per
// chunk. Identifiers without a translation are absent from the result.
//
// A failed chunk is reported to w and its identifiers treated as
// untranslatable; it never aborts the remaining chunks. The returned
// mapping only ever contains keys from pmids, at most one target each.
func (c *Client) TranslateIDs(ctx context.Context, pmids []string, w io.Writer) map[string]string {
	mapping := make(map[string]string, len(pmids))
	if len(pmids) == 0 {
		return mapping
	}

	requested := make(map[string]bool, len(pmids))
	for _, id := range pmids {
		requested[id] = true
	}

	for _, chunk := range chunks(pmids, c.idChunkSize()) {
		params := url.Values{
			"ids":    {strings.Join(chunk, ",")},
			"format": {"json"},
		}

		body, err := c.get(ctx, idconvBase, params)
		if err != nil {
			fmt.Fprintf(w, "warning: id translation chunk of %d failed: %v\n", len(chunk), err)
			continue
		}

		var resp idconvResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			fmt.Fprintf(w, "warning: id translation chunk of %d failed: parsing response: %v\n", len(chunk), err)
			continue
		}

		for _, rec := range resp.Records {
			if rec.PMID == "" || rec.PMCID == "" || rec.Live == "false" {
				continue
			}
			// Guard against the service echoing ids we never asked for.
			if !requested[rec.PMID] {
				continue
			}
			if _, ok := mapping[rec.PMID]; ok {
				continue
			}
			mapping[rec.PMID] = types.NormalizePMCID(rec.PMCID)
		}
	}

	return mapping
}
