package fraud

import (
	"strings"
	"unicode"
)

// Normalizer canonicalizes Swedish (or mixed Swedish/English) transcripts
// for comparison. Empty input yields empty outputs, never an error.
type Normalizer struct {
	tables *LanguageTables
}

// NewNormalizer creates a normalizer backed by the given language tables
func NewNormalizer(tables *LanguageTables) *Normalizer {
	return &Normalizer{tables: tables}
}

var phoneticReplacer = strings.NewReplacer(
	"ck", "k",
	"th", "t",
	"ph", "f",
	"ch", "sh",
	"å", "ao",
	"ä", "ae",
	"ö", "oe",
)

// Normalize produces the canonicalized view of one transcript
func (n *Normalizer) Normalize(text string) *Normalization {
	cleaned := cleanText(text)
	normalized := foldSwedish(cleaned)

	var keywords, stems []string
	for _, token := range strings.Fields(normalized) {
		if n.tables.IsStopword(token) {
			continue
		}
		keywords = append(keywords, token)
		stems = append(stems, stemSwedish(token))
	}

	return &Normalization{
		Original:   text,
		Cleaned:    cleaned,
		Normalized: normalized,
		Phonetic:   phoneticReplacer.Replace(cleaned),
		Structural: abstractStructure(normalized),
		Keywords:   keywords,
		Stems:      stems,
	}
}

// cleanText lowercases, strips punctuation and collapses whitespace.
// Swedish letters survive; folding happens separately so the cleaned form
// can still feed the phonetic substitutions.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// foldSwedish maps å/ä to a and ö to o for matching purposes. Display text
// is never folded.
func foldSwedish(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'å', 'ä':
			b.WriteByte('a')
		case 'ö':
			b.WriteByte('o')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// abstractStructure replaces every word token with "w" and every digit run
// with "n", keeping only the sentence shape.
func abstractStructure(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return ""
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		if isDigits(f) {
			out[i] = "n"
		} else {
			out[i] = "w"
		}
	}
	return strings.Join(out, " ")
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Suffixes stripped by the light Swedish stemmer, longest first. This is a
// matching aid, not a linguistically complete stemmer.
var swedishSuffixes = []string{
	"arnas", "ernas", "ornas", "heten", "heter",
	"arna", "erna", "orna", "ande", "ende", "aste",
	"aren", "ades", "ade", "are", "ast", "ens", "ern",
	"et", "en", "ar", "er", "or", "at", "te",
	"a", "e", "n", "s", "t",
}

// stemSwedish strips one inflection suffix, keeping at least three
// characters of stem.
func stemSwedish(word string) string {
	for _, suffix := range swedishSuffixes {
		if strings.HasSuffix(word, suffix) && len(word)-len(suffix) >= 3 {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}
