package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// LoadStringList reads a single-column tabular file (CSV; only the first
// field of each row is used). Blank rows and rows starting with '#' are
// skipped. An unreadable file is a fatal configuration error.
func LoadStringList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse list %s: %w", path, err)
	}

	var out []string
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		v := strings.TrimSpace(rec[0])
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// TagPrefixPattern compiles a device-tag matcher from a prefix list: a tag is
// a prefix followed by one or more digits, case-insensitive. An empty prefix
// list is a fatal configuration error, since it would match nothing.
func TagPrefixPattern(prefixes []string) (*regexp.Regexp, error) {
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("tag prefix list is empty")
	}
	quoted := make([]string, len(prefixes))
	for i, p := range prefixes {
		quoted[i] = regexp.QuoteMeta(strings.TrimSpace(p))
	}
	expr := `(?i)^(` + strings.Join(quoted, "|") + `)\d+$`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile tag prefix pattern: %w", err)
	}
	return re, nil
}

// LayerFilter reports whether a layer may contain device geometry. An empty
// allowed list permits every layer.
type LayerFilter struct {
	allowed map[string]bool
}

// NewLayerFilter builds a filter from the allowed-layer list. Comparison is
// case-insensitive.
func NewLayerFilter(layers []string) *LayerFilter {
	if len(layers) == 0 {
		return &LayerFilter{}
	}
	m := make(map[string]bool, len(layers))
	for _, l := range layers {
		m[strings.ToUpper(strings.TrimSpace(l))] = true
	}
	return &LayerFilter{allowed: m}
}

// Allows reports whether the layer may carry device geometry.
func (f *LayerFilter) Allows(layer string) bool {
	if f.allowed == nil {
		return true
	}
	return f.allowed[strings.ToUpper(strings.TrimSpace(layer))]
}
