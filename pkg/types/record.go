// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// License is the declared reuse license of a record.
type License string

const (
	LicenseCCBY         License = "cc-by"
	LicenseCCBYNC       License = "cc-by-nc"
	LicenseCCBYND       License = "cc-by-nd"
	LicensePublicDomain License = "public-domain"
	LicenseUnknown      License = "unknown"
)

// AllowsCommercialUse reports whether the license permits commercial reuse.
// Unknown licenses are treated as not permitting it.
func (l License) AllowsCommercialUse() bool {
	return l == LicenseCCBY || l == LicensePublicDomain
}

// PartialDate is a publication date that may carry only a year, or a year
// and month, depending on what the source markup declares. Day and Month
// are zero when absent.
type PartialDate struct {
	Year  int `json:"year" yaml:"year"`
	Month int `json:"month,omitempty" yaml:"month,omitempty"`
	Day   int `json:"day,omitempty" yaml:"day,omitempty"`
}

// IsZero reports whether no date component is set.
func (d PartialDate) IsZero() bool {
	return d.Year == 0
}

// String renders the date in the most specific form available:
// "2023", "2023-04", or "2023-04-17".
func (d PartialDate) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

// Section is one titled section of an article body, in document order.
// Category is assigned by keyword lookup against the section heading and
// is "uncategorized" when no rule matches.
type Section struct {
	Heading  string `json:"heading" yaml:"heading"`
	Category string `json:"category" yaml:"category"`
	Body     string `json:"body" yaml:"body"`
}

// Record is the durable unit of the corpus: the parsed metadata and body
// of one harvested article.
type Record struct {
	// PMID is the source identifier from the abstract database. Always set.
	PMID string `json:"pmid" yaml:"pmid"`

	// PMCID is the full-text repository identifier, when a translation
	// exists. Empty for abstract-only records.
	PMCID string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`

	// Title is the article title. A record without one is never persisted.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order. Names may repeat
	// across records.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Abstract is the free-text abstract, empty when the source has none.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Sections holds the body sections in document order. Headings are
	// not guaranteed unique.
	Sections []Section `json:"sections,omitempty" yaml:"sections,omitempty"`

	// PubDate is the publication date, possibly partial.
	PubDate PartialDate `json:"pub_date" yaml:"pub_date"`

	// License is the declared reuse license. Set once at parse time;
	// re-collection replaces the whole record rather than mutating it.
	License License `json:"license" yaml:"license"`

	// Source identifies the external system the record came from
	// (e.g. "pubmed_pmc").
	Source string `json:"source" yaml:"source"`

	// CollectedAt is the collection timestamp in RFC 3339 form.
	CollectedAt string `json:"collected_at" yaml:"collected_at"`
}

// HasFullText reports whether the record carries parsed body sections.
func (r *Record) HasFullText() bool {
	return len(r.Sections) > 0
}

// NormalizePMCID returns the identifier with the "PMC" prefix the
// full-text repository expects, adding it when missing.
func NormalizePMCID(id string) string {
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "PMC") {
		return id
	}
	return "PMC" + id
}
