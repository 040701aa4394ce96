// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CategoryState tracks a category through the collection pipeline.
// A category moves Pending → Searching → Translating → Fetching →
// Parsing → Persisted, or directly to Failed when its search call fails.
type CategoryState string

const (
	StatePending     CategoryState = "pending"
	StateSearching   CategoryState = "searching"
	StateTranslating CategoryState = "translating"
	StateFetching    CategoryState = "fetching"
	StateParsing     CategoryState = "parsing"
	StatePersisted   CategoryState = "persisted"
	StateFailed      CategoryState = "failed"
)

// Terminal reports whether the state is one of the two terminal states.
func (s CategoryState) Terminal() bool {
	return s == StatePersisted || s == StateFailed
}

// CategorySummary records the outcome of one category's collection.
// Every requested identifier lands in exactly one of Collected,
// Duplicate, or Failed.
type CategorySummary struct {
	Category string        `json:"category" yaml:"category"`
	Query    string        `json:"query" yaml:"query"`
	State    CategoryState `json:"state" yaml:"state"`

	// Requested is the number of identifiers the search returned.
	Requested int `json:"requested" yaml:"requested"`

	// Translated counts identifiers with a full-text translation.
	Translated int `json:"translated" yaml:"translated"`

	// Fetched counts identifiers whose full text was retrieved.
	Fetched int `json:"fetched" yaml:"fetched"`

	// Parsed counts records that yielded a title.
	Parsed int `json:"parsed" yaml:"parsed"`

	// Collected counts records newly written to the corpus.
	Collected int `json:"collected" yaml:"collected"`

	// Duplicate counts identifiers already present in the corpus index.
	Duplicate int `json:"duplicate" yaml:"duplicate"`

	// Failed counts identifiers that never became a persisted record:
	// no full-text translation, fetch gaps, parse failures, and every
	// requested identifier when the category's search fails.
	Failed int `json:"failed" yaml:"failed"`

	// Error holds the failure message for a Failed category.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Accounted reports whether every requested identifier is counted exactly
// once across the terminal counters.
func (s CategorySummary) Accounted() bool {
	return s.Collected+s.Duplicate+s.Failed == s.Requested
}
