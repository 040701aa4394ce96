// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jats extracts structured records from PMC full-text XML.
// Extraction is structural (section elements, contributor blocks, date
// elements) rather than positional, since markup layout varies between
// journals. Missing optional fields stay empty; a record without a
// title is a parse failure and is never persisted.
package jats

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skie/litharvest/pkg/types"
)

// ParseError reports a record whose markup could not yield the one
// mandatory field. The orchestrator drops the record and counts it.
type ParseError struct {
	PMID   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed for %s: %s", e.PMID, e.Reason)
}

// JATS XML structures, limited to the fields the corpus keeps.

type document struct {
	Front struct {
		Meta articleMeta `xml:"article-meta"`
	} `xml:"front"`
	Body struct {
		Secs []secElem `xml:"sec"`
	} `xml:"body"`
}

type articleMeta struct {
	IDs        []articleID `xml:"article-id"`
	TitleGroup struct {
		Title mixed `xml:"article-title"`
	} `xml:"title-group"`
	Contribs    []contrib    `xml:"contrib-group>contrib"`
	Abstract    *mixed       `xml:"abstract"`
	PubDates    []pubDate    `xml:"pub-date"`
	Permissions *permissions `xml:"permissions"`
}

type articleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

type contrib struct {
	Type string `xml:"contrib-type,attr"`
	Name struct {
		Surname    string `xml:"surname"`
		GivenNames string `xml:"given-names"`
	} `xml:"name"`
	Collab mixed `xml:"collab"`
}

type pubDate struct {
	Type  string `xml:"pub-type,attr"`
	Year  string `xml:"year"`
	Month string `xml:"month"`
	Day   string `xml:"day"`
}

type permissions struct {
	Licenses []licenseElem `xml:"license"`
}

type licenseElem struct {
	Type string `xml:"license-type,attr"`
	Href string `xml:"href,attr"`
	Refs []mixed `xml:"license_ref"`
	Body []byte  `xml:",innerxml"`
}

type secElem struct {
	Title mixed     `xml:"title"`
	Paras []mixed   `xml:"p"`
	Secs  []secElem `xml:"sec"`
}

// mixed captures an element that may contain inline markup (italics,
// cross-references). Text() flattens it to plain character data.
type mixed struct {
	Raw []byte `xml:",innerxml"`
}

// Text returns the element's character data with markup stripped and
// whitespace collapsed, like joining an element's itertext.
func (m mixed) Text() string {
	if len(m.Raw) == 0 {
		return ""
	}
	// Plain text can skip the decoder, but only when it carries neither
	// markup nor character entities.
	if !bytes.ContainsAny(m.Raw, "<&") {
		return collapse(string(m.Raw))
	}
	d := xml.NewDecoder(bytes.NewReader(m.Raw))
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
	return collapse(b.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Parse extracts a Record from one raw full-text payload. The returned
// record carries pmid as its source identifier; the target identifier
// is taken from the markup when declared.
func Parse(data []byte, pmid string) (*types.Record, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{PMID: pmid, Reason: fmt.Sprintf("invalid markup: %v", err)}
	}

	meta := doc.Front.Meta

	title := meta.TitleGroup.Title.Text()
	if title == "" {
		return nil, &ParseError{PMID: pmid, Reason: "no title"}
	}

	rec := &types.Record{
		PMID:        pmid,
		Title:       title,
		Source:      "pubmed_pmc",
		License:     classifyLicense(meta.Permissions),
		CollectedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for _, id := range meta.IDs {
		if id.Type == "pmc" || id.Type == "pmcid" {
			rec.PMCID = types.NormalizePMCID(strings.TrimSpace(id.Value))
			break
		}
	}

	for _, c := range meta.Contribs {
		if c.Type != "" && c.Type != "author" {
			continue
		}
		if name := contribName(c); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}

	if meta.Abstract != nil {
		rec.Abstract = meta.Abstract.Text()
	}

	rec.PubDate = pickPubDate(meta.PubDates)

	collectSections(doc.Body.Secs, &rec.Sections)

	return rec, nil
}

// contribName builds "Given Surname", falling back to a collective name.
func contribName(c contrib) string {
	name := strings.TrimSpace(strings.TrimSpace(c.Name.GivenNames) + " " + strings.TrimSpace(c.Name.Surname))
	if name != "" {
		return name
	}
	return c.Collab.Text()
}

// pickPubDate prefers the electronic publication date, then the print
// date, then whatever carries a year. Month and day stay zero when the
// markup omits them.
func pickPubDate(dates []pubDate) types.PartialDate {
	byType := func(want string) *pubDate {
		for i := range dates {
			if dates[i].Type == want && dates[i].Year != "" {
				return &dates[i]
			}
		}
		return nil
	}

	d := byType("epub")
	if d == nil {
		d = byType("ppub")
	}
	if d == nil {
		for i := range dates {
			if dates[i].Year != "" {
				d = &dates[i]
				break
			}
		}
	}
	if d == nil {
		return types.PartialDate{}
	}

	pd := types.PartialDate{Year: atoiOrZero(d.Year)}
	if pd.Year == 0 {
		return types.PartialDate{}
	}
	pd.Month = monthNumber(d.Month)
	if pd.Month > 0 {
		pd.Day = atoiOrZero(d.Day)
	}
	return pd
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// monthNumber accepts numeric months and the abbreviated names some
// journals emit.
func monthNumber(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	key := strings.ToLower(s)
	if len(key) > 3 {
		key = key[:3]
	}
	return monthNames[key]
}

// collectSections walks titled sections in document order, keeping each
// section's direct paragraphs and recursing into sub-sections.
func collectSections(secs []secElem, out *[]types.Section) {
	for _, sec := range secs {
		heading := sec.Title.Text()
		if heading != "" {
			var paras []string
			for _, p := range sec.Paras {
				if text := p.Text(); text != "" {
					paras = append(paras, text)
				}
			}
			if len(paras) > 0 {
				*out = append(*out, types.Section{
					Heading:  heading,
					Category: CategorizeSection(heading),
					Body:     strings.Join(paras, "\n\n"),
				})
			}
		}
		collectSections(sec.Secs, out)
	}
}
