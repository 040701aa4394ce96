// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest orchestrates the collection pipeline: search,
// identifier translation, batched full-text fetch, parse, persist. One
// category at a time; a category's search failure never stops the run.
package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/skie/litharvest/internal/eutils"
)

// Category pairs a corpus category name with the query that fills it.
type Category struct {
	Name  string       `yaml:"name"`
	Query eutils.Query `yaml:"query"`
}

type categoryFile struct {
	Categories []Category `yaml:"categories"`
}

// Categories loads the category list from a YAML file. Every category
// needs a unique name and a non-empty query term.
func Categories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category file: %w", err)
	}

	var file categoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing category file %s: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("category file %s defines no categories", path)
	}

	seen := make(map[string]bool, len(file.Categories))
	for i, cat := range file.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		// Names become file names under the corpus root.
		if cat.Name != filepath.Base(cat.Name) || strings.HasPrefix(cat.Name, ".") {
			return nil, fmt.Errorf("category name %q must be a plain file name", cat.Name)
		}
		if cat.Query.IsEmpty() {
			return nil, fmt.Errorf("category %q has no query term", cat.Name)
		}
		if seen[cat.Name] {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
	}
	return file.Categories, nil
}

// FromQuery synthesizes a single-category list from an ad-hoc term,
// with the restrictions a licensable corpus needs turned on.
func FromQuery(term string) []Category {
	return []Category{{
		Name: slug(term),
		Query: eutils.Query{
			Term:           term,
			OpenAccessOnly: true,
			EnglishOnly:    true,
		},
	}}
}

// slug derives a filesystem-safe category name from a query term.
func slug(term string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(term)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	s := strings.Trim(b.String(), "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	if s == "" {
		return "query"
	}
	return s
}
