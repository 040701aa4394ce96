// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litharvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// EutilsConfig holds settings for the NCBI E-utilities client. It is
// constructed once at startup and passed into each component; nothing
// reads it from global state, so tests can inject their own instance.
type EutilsConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the NCBI API key. Without one the service allows 3
	// requests per second; with one, 10.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is the contact address sent with every request, per NCBI
	// usage policy.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// RatePerSecond overrides the request rate derived from APIKey.
	// Zero means derive: 3 req/s keyless, 10 req/s with a key.
	RatePerSecond float64 `json:"rate_per_second,omitempty" yaml:"rate_per_second,omitempty"`

	// IDChunkSize caps the number of identifiers joined into one
	// translation or fetch call, keeping URLs under the documented
	// E-utilities ceiling (default 200).
	IDChunkSize int `json:"id_chunk_size" yaml:"id_chunk_size"`

	// PageSize is the retmax used when paginating esearch results
	// (default 500).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// EffectiveRate returns the request rate the client must not exceed.
func (c EutilsConfig) EffectiveRate() float64 {
	if c.RatePerSecond > 0 {
		return c.RatePerSecond
	}
	if c.APIKey != "" {
		return 10
	}
	return 3
}

// HarvestConfig holds settings for a collection run.
type HarvestConfig struct {
	// CorpusDir is the base directory for the corpus (contains
	// metadata/, fulltext/, index/).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`

	// MaxResults caps the number of identifiers requested per category.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Pilot restricts every category to PilotResults identifiers for a
	// quick validation run.
	Pilot bool `json:"pilot" yaml:"pilot"`

	// PilotResults is the per-category cap used in pilot mode (default 100).
	PilotResults int `json:"pilot_results" yaml:"pilot_results"`
}

// Cap returns the effective per-category result cap.
func (c HarvestConfig) Cap() int {
	if c.Pilot {
		if c.PilotResults > 0 {
			return c.PilotResults
		}
		return 100
	}
	if c.MaxResults > 0 {
		return c.MaxResults
	}
	return 100
}
