// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query holds the parameters of one search call. The E-utilities term
// syntax is a flat string, so filters are rendered by literal
// concatenation rather than a structured query object.
type Query struct {
	// Term is the topical search expression (free text or MeSH).
	Term string `yaml:"term"`

	// PubTypes restricts results to an allow-list of publication types
	// (e.g. "Review", "Practice Guideline", "Meta-Analysis").
	PubTypes []string `yaml:"pub_types,omitempty"`

	// YearFrom and YearTo bound the publication date range. Zero means
	// unbounded on that side.
	YearFrom int `yaml:"year_from,omitempty"`
	YearTo   int `yaml:"year_to,omitempty"`

	// OpenAccessOnly restricts results to free full-text records, which
	// is required when the harvested corpus must carry reuse licenses.
	OpenAccessOnly bool `yaml:"open_access_only,omitempty"`

	// EnglishOnly adds a language restriction.
	EnglishOnly bool `yaml:"english_only,omitempty"`
}

// IsEmpty reports whether the query has no topical term.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Term) == ""
}

// BuildTerm renders the query into the flat term string the search
// endpoint accepts, ANDing the topical term, publication-type
// allow-list, language restriction, date range, and free-full-text
// filter.
func (q Query) BuildTerm() string {
	term := strings.TrimSpace(q.Term)
	if term == "" {
		return ""
	}

	parts := []string{"(" + term + ")"}

	if len(q.PubTypes) > 0 {
		pts := make([]string, len(q.PubTypes))
		for i, pt := range q.PubTypes {
			pts[i] = pt + "[PT]"
		}
		parts = append(parts, "("+strings.Join(pts, " OR ")+")")
	}

	if q.EnglishOnly {
		parts = append(parts, "english[lang]")
	}

	if q.YearFrom > 0 || q.YearTo > 0 {
		from, to := q.YearFrom, q.YearTo
		if from == 0 {
			from = 1800
		}
		if to == 0 {
			to = 3000
		}
		parts = append(parts, fmt.Sprintf(`("%d"[PDAT] : "%d"[PDAT])`, from, to))
	}

	if q.OpenAccessOnly {
		parts = append(parts, "ffrft[filter]")
	}

	return strings.Join(parts, " AND ")
}

// SearchError wraps a failed search call. A search failure is fatal to
// the category that issued it, but never to other categories.
type SearchError struct {
	Term string
	Err  error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed for %q: %v", e.Term, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// esearch JSON response structures. Count and retstart come back as
// strings from the service.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count  string   `json:"count"`
	IDList []string `json:"idlist"`
}

// Search issues the query against the abstract database and returns up
// to cap source identifiers, paginating through result pages as needed,
// plus the true match count. A query matching nothing returns an empty
// slice and no error; network and non-2xx failures return a *SearchError.
func (c *Client) Search(ctx context.Context, q Query, cap int) ([]string, int, error) {
	term := q.BuildTerm()
	if term == "" {
		return nil, 0, &SearchError{Term: q.Term, Err: fmt.Errorf("empty query")}
	}
	if cap <= 0 {
		return nil, 0, nil
	}

	var ids []string
	total := 0

	for len(ids) < cap {
		retmax := c.pageSize()
		if remaining := cap - len(ids); remaining < retmax {
			retmax = remaining
		}

		params := url.Values{
			"db":       {"pubmed"},
			"term":     {term},
			"retmode":  {"json"},
			"retstart": {strconv.Itoa(len(ids))},
			"retmax":   {strconv.Itoa(retmax)},
		}

		body, err := c.get(ctx, esearchBase, params)
		if err != nil {
			return nil, 0, &SearchError{Term: q.Term, Err: err}
		}

		var resp esearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, 0, &SearchError{Term: q.Term, Err: fmt.Errorf("parsing response: %w", err)}
		}

		if n, err := strconv.Atoi(resp.Result.Count); err == nil {
			total = n
		}

		ids = append(ids, resp.Result.IDList...)

		// Last page: the service returned fewer ids than asked for, or
		// we have everything it has.
		if len(resp.Result.IDList) < retmax || len(ids) >= total {
			break
		}
	}

	if len(ids) > cap {
		ids = ids[:cap]
	}
	return ids, total, nil
}
