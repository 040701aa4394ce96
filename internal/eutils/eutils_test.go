// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/skie/litharvest/pkg/types"
)

func testCfg() types.EutilsConfig {
	return types.EutilsConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		RatePerSecond: 1000, // no real throttling in tests
		IDChunkSize:   200,
		PageSize:      500,
	}
}

func newTestClient(ts *httptest.Server, cfg types.EutilsConfig) *Client {
	return NewClient(ts.Client(), cfg)
}

// --- BuildTerm ---

func TestBuildTerm(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{
			"topic only",
			Query{Term: "sepsis"},
			"(sepsis)",
		},
		{
			"publication types",
			Query{Term: "sepsis", PubTypes: []string{"Review", "Practice Guideline"}},
			"(sepsis) AND (Review[PT] OR Practice Guideline[PT])",
		},
		{
			"date range",
			Query{Term: "sepsis", YearFrom: 2014, YearTo: 2025},
			`(sepsis) AND ("2014"[PDAT] : "2025"[PDAT])`,
		},
		{
			"open-ended date range",
			Query{Term: "sepsis", YearFrom: 2014},
			`(sepsis) AND ("2014"[PDAT] : "3000"[PDAT])`,
		},
		{
			"open access filter last",
			Query{Term: "sepsis", OpenAccessOnly: true},
			"(sepsis) AND ffrft[filter]",
		},
		{
			"language restriction",
			Query{Term: "sepsis", EnglishOnly: true},
			"(sepsis) AND english[lang]",
		},
		{
			"everything",
			Query{
				Term:           `"pneumonia"[MeSH Terms]`,
				PubTypes:       []string{"Meta-Analysis"},
				YearFrom:       2014,
				YearTo:         2025,
				OpenAccessOnly: true,
				EnglishOnly:    true,
			},
			`("pneumonia"[MeSH Terms]) AND (Meta-Analysis[PT]) AND english[lang] AND ("2014"[PDAT] : "2025"[PDAT]) AND ffrft[filter]`,
		},
		{
			"empty",
			Query{},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.BuildTerm(); got != tt.want {
				t.Errorf("BuildTerm() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Search ---

func esearchJSON(count int, ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf(`{"esearchresult":{"count":"%d","idlist":[%s]}}`,
		count, strings.Join(quoted, ","))
}

func TestSearchReturnsIDs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("db") != "pubmed" {
			t.Errorf("db = %q, want pubmed", r.URL.Query().Get("db"))
		}
		fmt.Fprint(w, esearchJSON(3, []string{"100", "200", "300"}))
	}))
	defer ts.Close()

	old := esearchBase
	esearchBase = ts.URL
	defer func() { esearchBase = old }()

	c := newTestClient(ts, testCfg())
	ids, total, err := c.Search(context.Background(), Query{Term: "sepsis"}, 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(ids) != 3 || ids[0] != "100" || ids[2] != "300" {
		t.Errorf("ids = %v", ids)
	}
}

func TestSearchZeroMatchesIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, esearchJSON(0, nil))
	}))
	defer ts.Close()

	old := esearchBase
	esearchBase = ts.URL
	defer func() { esearchBase = old }()

	c := newTestClient(ts, testCfg())
	ids, total, err := c.Search(context.Background(), Query{Term: "no such topic"}, 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 0 || len(ids) != 0 {
		t.Errorf("ids = %v, total = %d, want empty", ids, total)
	}
}

func TestSearchHTTPErrorIsSearchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	old := esearchBase
	esearchBase = ts.URL
	defer func() { esearchBase = old }()

	c := newTestClient(ts, testCfg())
	_, _, err := c.Search(context.Background(), Query{Term: "sepsis"}, 50)
	var se *SearchError
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.As(err, &se) {
		t.Errorf("error %T is not *SearchError", err)
	}
}

func TestSearchPaginatesToCap(t *testing.T) {
	// 30 matching ids served in pages of 10; cap of 25 needs 3 requests.
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		start, _ := strconv.Atoi(r.URL.Query().Get("retstart"))
		retmax, _ := strconv.Atoi(r.URL.Query().Get("retmax"))
		if retmax > 10 {
			retmax = 10
		}
		var ids []string
		for i := start; i < start+retmax && i < 30; i++ {
			ids = append(ids, strconv.Itoa(1000+i))
		}
		fmt.Fprint(w, esearchJSON(30, ids))
	}))
	defer ts.Close()

	old := esearchBase
	esearchBase = ts.URL
	defer func() { esearchBase = old }()

	cfg := testCfg()
	cfg.PageSize = 10
	c := newTestClient(ts, cfg)

	ids, total, err := c.Search(context.Background(), Query{Term: "sepsis"}, 25)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 30 {
		t.Errorf("total = %d, want 30", total)
	}
	if len(ids) != 25 {
		t.Errorf("len(ids) = %d, want 25", len(ids))
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if ids[0] != "1000" || ids[24] != "1024" {
		t.Errorf("unexpected page ordering: first=%s last=%s", ids[0], ids[24])
	}
}

// --- TranslateIDs ---

func idconvJSON(pairs map[string]string) string {
	var recs []string
	for pmid, pmcid := range pairs {
		if pmcid == "" {
			recs = append(recs, fmt.Sprintf(`{"pmid":%q,"live":"false"}`, pmid))
		} else {
			recs = append(recs, fmt.Sprintf(`{"pmid":%q,"pmcid":%q}`, pmid, pmcid))
		}
	}
	return fmt.Sprintf(`{"records":[%s]}`, strings.Join(recs, ","))
}

func TestTranslateIDs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, idconvJSON(map[string]string{
			"100": "PMC900",
			"200": "", // abstract-only, no full text
			"300": "PMC901",
		}))
	}))
	defer ts.Close()

	old := idconvBase
	idconvBase = ts.URL
	defer func() { idconvBase = old }()

	c := newTestClient(ts, testCfg())
	var buf bytes.Buffer
	got := c.TranslateIDs(context.Background(), []string{"100", "200", "300"}, &buf)

	if len(got) != 2 {
		t.Fatalf("len(mapping) = %d, want 2", len(got))
	}
	if got["100"] != "PMC900" || got["300"] != "PMC901" {
		t.Errorf("mapping = %v", got)
	}
	if _, ok := got["200"]; ok {
		t.Error("abstract-only id should be absent from mapping")
	}
}

func TestTranslateIDsNeverReturnsForeignKeys(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Service echoes an id we never asked about.
		fmt.Fprint(w, idconvJSON(map[string]string{
			"100": "PMC900",
			"999": "PMC999",
		}))
	}))
	defer ts.Close()

	old := idconvBase
	idconvBase = ts.URL
	defer func() { idconvBase = old }()

	c := newTestClient(ts, testCfg())
	var buf bytes.Buffer
	got := c.TranslateIDs(context.Background(), []string{"100"}, &buf)

	if len(got) != 1 {
		t.Fatalf("len(mapping) = %d, want 1", len(got))
	}
	if _, ok := got["999"]; ok {
		t.Error("mapping must not contain keys outside the input")
	}
}

func TestTranslateIDsChunksUnderCeiling(t *testing.T) {
	var chunkSizes []int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		chunkSizes = append(chunkSizes, len(ids))
		pairs := make(map[string]string, len(ids))
		for _, id := range ids {
			pairs[id] = "PMC" + id
		}
		fmt.Fprint(w, idconvJSON(pairs))
	}))
	defer ts.Close()

	old := idconvBase
	idconvBase = ts.URL
	defer func() { idconvBase = old }()

	cfg := testCfg()
	cfg.IDChunkSize = 200
	c := newTestClient(ts, cfg)

	pmids := make([]string, 450)
	for i := range pmids {
		pmids[i] = strconv.Itoa(10000 + i)
	}

	var buf bytes.Buffer
	got := c.TranslateIDs(context.Background(), pmids, &buf)

	if len(got) != 450 {
		t.Errorf("len(mapping) = %d, want 450", len(got))
	}
	if len(chunkSizes) != 3 {
		t.Fatalf("calls = %d, want 3", len(chunkSizes))
	}
	for i, n := range chunkSizes {
		if n > 200 {
			t.Errorf("chunk %d carried %d ids, ceiling is 200", i, n)
		}
	}
	if chunkSizes[0] != 200 || chunkSizes[1] != 200 || chunkSizes[2] != 50 {
		t.Errorf("chunk sizes = %v, want [200 200 50]", chunkSizes)
	}
}

func TestTranslateIDsChunkFailureIsRecoverable(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		pairs := make(map[string]string, len(ids))
		for _, id := range ids {
			pairs[id] = "PMC" + id
		}
		fmt.Fprint(w, idconvJSON(pairs))
	}))
	defer ts.Close()

	old := idconvBase
	idconvBase = ts.URL
	defer func() { idconvBase = old }()

	cfg := testCfg()
	cfg.IDChunkSize = 2
	c := newTestClient(ts, cfg)

	var buf bytes.Buffer
	got := c.TranslateIDs(context.Background(), []string{"1", "2", "3", "4"}, &buf)

	// First chunk (ids 1,2) failed; second chunk succeeded.
	if len(got) != 2 {
		t.Errorf("len(mapping) = %d, want 2", len(got))
	}
	if !strings.Contains(buf.String(), "warning:") {
		t.Error("failed chunk should be reported")
	}
}

// --- FetchFullText ---

func articleXML(pmcid, title string) string {
	return fmt.Sprintf(`<article>
  <front><article-meta>
    <article-id pub-id-type="pmc">%s</article-id>
    <title-group><article-title>%s</article-title></title-group>
  </article-meta></front>
  <body><sec><title>Introduction</title><p>Text.</p></sec></body>
</article>`, pmcid, title)
}

func articleSetXML(articles ...string) string {
	return `<?xml version="1.0"?><pmc-articleset>` + strings.Join(articles, "\n") + `</pmc-articleset>`
}

func TestFetchFullTextPartialBatch(t *testing.T) {
	// 5 ids requested, service only has 3.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, articleSetXML(
			articleXML("11", "Article Eleven"),
			articleXML("13", "Article Thirteen"),
			articleXML("15", "Article Fifteen"),
		))
	}))
	defer ts.Close()

	old := efetchBase
	efetchBase = ts.URL
	defer func() { efetchBase = old }()

	c := newTestClient(ts, testCfg())
	var buf bytes.Buffer
	docs := c.FetchFullText(context.Background(),
		[]string{"PMC11", "PMC12", "PMC13", "PMC14", "PMC15"}, &buf)

	if len(docs) != 3 {
		t.Fatalf("len(docs) = %d, want 3", len(docs))
	}
	for _, id := range []string{"PMC11", "PMC13", "PMC15"} {
		if _, ok := docs[id]; !ok {
			t.Errorf("missing document for %s", id)
		}
	}
	for _, id := range []string{"PMC12", "PMC14"} {
		if _, ok := docs[id]; ok {
			t.Errorf("id %s should be absent, not fabricated", id)
		}
	}
	if !strings.Contains(string(docs["PMC11"]), "Article Eleven") {
		t.Error("payload should carry the article markup")
	}
}

func TestFetchFullTextChunksUnderCeiling(t *testing.T) {
	var chunkSizes []int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		chunkSizes = append(chunkSizes, len(ids))
		var arts []string
		for _, id := range ids {
			arts = append(arts, articleXML(strings.TrimPrefix(id, "PMC"), "Title "+id))
		}
		fmt.Fprint(w, articleSetXML(arts...))
	}))
	defer ts.Close()

	old := efetchBase
	efetchBase = ts.URL
	defer func() { efetchBase = old }()

	cfg := testCfg()
	cfg.IDChunkSize = 3
	c := newTestClient(ts, cfg)

	pmcids := []string{"PMC1", "PMC2", "PMC3", "PMC4", "PMC5", "PMC6", "PMC7"}
	var buf bytes.Buffer
	docs := c.FetchFullText(context.Background(), pmcids, &buf)

	if len(docs) != 7 {
		t.Errorf("len(docs) = %d, want 7", len(docs))
	}
	if len(chunkSizes) != 3 {
		t.Fatalf("calls = %d, want 3", len(chunkSizes))
	}
	for i, n := range chunkSizes {
		if n > 3 {
			t.Errorf("chunk %d carried %d ids, ceiling is 3", i, n)
		}
	}
}
