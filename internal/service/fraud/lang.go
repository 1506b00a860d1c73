package fraud

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lang/swedish.yaml
var langFS embed.FS

// LanguageTables holds the Swedish tuning data: stop-words, synonym groups,
// suspicious template regexes, boilerplate phrases, superlatives and
// per-business-type vocabulary deny-lists. The tables ship embedded and can
// be overridden from a file so language tuning never requires a rebuild.
type LanguageTables struct {
	Stopwords      map[string]struct{}
	SynonymGroups  map[string]int // folded word -> group id
	Templates      []*regexp.Regexp
	GenericPhrases []string
	Positive       []string
	Negative       []string
	Denylists      map[string][]string // folded business type -> folded terms
}

type rawTables struct {
	Stopwords    []string   `yaml:"stopwords"`
	Synonyms     [][]string `yaml:"synonyms"`
	Templates    []string   `yaml:"templates"`
	Generic      []string   `yaml:"generic_phrases"`
	Superlatives struct {
		Positive []string `yaml:"positive"`
		Negative []string `yaml:"negative"`
	} `yaml:"superlatives"`
	Denylists map[string][]string `yaml:"business_denylists"`
}

// LoadEmbeddedTables parses the embedded Swedish tables
func LoadEmbeddedTables() (*LanguageTables, error) {
	data, err := langFS.ReadFile("lang/swedish.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded language tables: %w", err)
	}
	return parseTables(data)
}

// LoadTablesFromFile parses an override table file from disk
func LoadTablesFromFile(path string) (*LanguageTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading language tables %s: %w", path, err)
	}
	return parseTables(data)
}

func parseTables(data []byte) (*LanguageTables, error) {
	var raw rawTables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing language tables: %w", err)
	}

	t := &LanguageTables{
		Stopwords:     make(map[string]struct{}, len(raw.Stopwords)),
		SynonymGroups: make(map[string]int),
		Denylists:     make(map[string][]string, len(raw.Denylists)),
	}
	for _, w := range raw.Stopwords {
		t.Stopwords[foldSwedish(strings.ToLower(w))] = struct{}{}
	}
	for group, words := range raw.Synonyms {
		for _, w := range words {
			t.SynonymGroups[foldSwedish(strings.ToLower(w))] = group
		}
	}
	for _, expr := range raw.Templates {
		// Folding only; lowercasing would corrupt escape classes like \S.
		// Template sources are written lowercase already.
		re, err := regexp.Compile(foldSwedish(expr))
		if err != nil {
			return nil, fmt.Errorf("compiling template %q: %w", expr, err)
		}
		t.Templates = append(t.Templates, re)
	}
	for _, p := range raw.Generic {
		t.GenericPhrases = append(t.GenericPhrases, foldSwedish(strings.ToLower(p)))
	}
	for _, w := range raw.Superlatives.Positive {
		t.Positive = append(t.Positive, foldSwedish(strings.ToLower(w)))
	}
	for _, w := range raw.Superlatives.Negative {
		t.Negative = append(t.Negative, foldSwedish(strings.ToLower(w)))
	}
	for businessType, terms := range raw.Denylists {
		folded := make([]string, 0, len(terms))
		for _, term := range terms {
			folded = append(folded, foldSwedish(strings.ToLower(term)))
		}
		t.Denylists[foldSwedish(strings.ToLower(businessType))] = folded
	}
	return t, nil
}

// SameSynonymGroup reports whether two folded words belong to one synonym group
func (t *LanguageTables) SameSynonymGroup(a, b string) bool {
	ga, ok := t.SynonymGroups[a]
	if !ok {
		return false
	}
	gb, ok := t.SynonymGroups[b]
	return ok && ga == gb
}

// IsStopword reports whether a folded token is a stop-word
func (t *LanguageTables) IsStopword(word string) bool {
	_, ok := t.Stopwords[word]
	return ok
}

// DenylistFor returns the inappropriate-vocabulary list for a business type
func (t *LanguageTables) DenylistFor(businessType string) []string {
	return t.Denylists[foldSwedish(strings.ToLower(businessType))]
}
