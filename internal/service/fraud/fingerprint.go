package fraud

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// NewFingerprint derives the five independent hashes plus length metadata
// from a normalization. Hash equality lets the duplicate detector
// short-circuit in O(1) before falling back to string-similarity scans.
func NewFingerprint(norm *Normalization, ts time.Time) *Fingerprint {
	return &Fingerprint{
		ExactHash:      hashString(norm.Normalized),
		PhoneticHash:   hashString(norm.Phonetic),
		SemanticHash:   hashString(strings.Join(norm.Stems, " ")),
		StructuralHash: hashString(norm.Structural),
		KeywordHash:    hashString(sortedKeywordKey(norm.Keywords)),
		Length:         len(norm.Normalized),
		WordCount:      norm.WordCount(),
		Timestamp:      ts,
	}
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// sortedKeywordKey joins the sorted, de-duplicated keyword list
func sortedKeywordKey(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(keywords))
	uniq := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, " ")
}
