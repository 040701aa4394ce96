// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/skie/litharvest/pkg/types"
)

// efetch XML envelope. Each article's raw markup is kept as innerxml so
// the parser sees the record exactly as the service sent it; the
// article-id list is decoded alongside to attribute each payload to its
// identifier.
type pmcArticleSet struct {
	Articles []pmcArticleEnvelope `xml:"article"`
}

type pmcArticleEnvelope struct {
	IDs   []pmcArticleID `xml:"front>article-meta>article-id"`
	Inner []byte         `xml:",innerxml"`
}

type pmcArticleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

// pmcid returns the article's full-text identifier, normalized with the
// PMC prefix, or "" when the markup carries none.
func (e pmcArticleEnvelope) pmcid() string {
	for _, id := range e.IDs {
		if id.Type == "pmc" || id.Type == "pmcid" {
			return types.NormalizePMCID(strings.TrimSpace(id.Value))
		}
	}
	return ""
}

// FetchFullText retrieves the raw full-text markup for a batch of
// target identifiers (PMCIDs), chunked under the batch ceiling with one
// rate-limited call per chunk. The result maps each found identifier to
// its markup; identifiers the service did not return are simply absent,
// which the caller treats as "full text unavailable".
//
// A failed chunk is reported to w and its identifiers left absent; it
// never aborts the remaining chunks.
func (c *Client) FetchFullText(ctx context.Context, pmcids []string, w io.Writer) map[string][]byte {
	docs := make(map[string][]byte, len(pmcids))
	if len(pmcids) == 0 {
		return docs
	}

	requested := make(map[string]bool, len(pmcids))
	for _, id := range pmcids {
		requested[types.NormalizePMCID(id)] = true
	}

	for _, chunk := range chunks(pmcids, c.idChunkSize()) {
		params := url.Values{
			"db":      {"pmc"},
			"id":      {strings.Join(chunk, ",")},
			"retmode": {"xml"},
		}

		body, err := c.get(ctx, efetchBase, params)
		if err != nil {
			fmt.Fprintf(w, "warning: full-text fetch chunk of %d failed: %v\n", len(chunk), err)
			continue
		}

		var set pmcArticleSet
		if err := xml.Unmarshal(body, &set); err != nil {
			fmt.Fprintf(w, "warning: full-text fetch chunk of %d failed: parsing response: %v\n", len(chunk), err)
			continue
		}

		for _, art := range set.Articles {
			id := art.pmcid()
			if id == "" || !requested[id] {
				continue
			}
			if _, ok := docs[id]; ok {
				continue
			}
			// Re-wrap the payload so it stands alone as one document.
			docs[id] = []byte("<article>" + string(art.Inner) + "</article>")
		}
	}

	return docs
}
