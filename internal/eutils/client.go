// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eutils is a rate-limited client for the NCBI E-utilities API
// family: esearch for identifier search, the ID converter for
// PMID→PMCID translation, and efetch for full-text retrieval.
package eutils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/skie/litharvest/internal/httputil"
	"github.com/skie/litharvest/pkg/types"
)

// Base URLs for the external services. Declared as vars so tests can
// substitute httptest servers.
var (
	esearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	efetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	idconvBase  = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
)

const (
	defaultIDChunkSize = 200
	defaultPageSize    = 500

	// maxBodyBytes bounds response reads; full-text batches can be large
	// but a 50 MB response means something is wrong upstream.
	maxBodyBytes = 50 << 20
)

// toolName is sent as the tool parameter on every request, per NCBI
// usage policy.
const toolName = "litharvest"

// Client issues rate-limited requests against the E-utilities endpoints.
// All outbound calls pass through the same token bucket, so nested batch
// loops cannot exceed the configured request rate.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     types.EutilsConfig
}

// NewClient builds a client from cfg. The request rate follows the
// credential tier: 3 req/s without an API key, 10 req/s with one,
// unless cfg overrides it.
func NewClient(httpClient *http.Client, cfg types.EutilsConfig) *Client {
	r := cfg.EffectiveRate()
	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(r), 1),
		cfg:     cfg,
	}
}

// idChunkSize returns the configured identifier batch ceiling.
func (c *Client) idChunkSize() int {
	if c.cfg.IDChunkSize > 0 {
		return c.cfg.IDChunkSize
	}
	return defaultIDChunkSize
}

// pageSize returns the retmax used for esearch pagination.
func (c *Client) pageSize() int {
	if c.cfg.PageSize > 0 {
		return c.cfg.PageSize
	}
	return defaultPageSize
}

// get performs one rate-limited GET against base with params, returning
// the response body. The credential parameters are appended to every
// call. Non-2xx responses are errors.
func (c *Client) get(ctx context.Context, base string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("tool", toolName)
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}

	reqURL := base + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, base)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

// chunks splits ids into slices of at most size elements, preserving order.
func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
