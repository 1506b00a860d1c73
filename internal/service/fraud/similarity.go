package fraud

import (
	"math"
	"strings"
)

// levenshteinSimilarity converts edit distance into a [0,1] similarity
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a two-row matrix
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// jaccardWords is word-set overlap over word-set union
func jaccardWords(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	intersect := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersect++
		}
	}
	return float64(intersect) / float64(len(setA)+len(setB)-intersect)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// ngramCosine is the cosine similarity of combined character bigram and
// trigram frequency vectors. Catches transpositions and small insertions
// that word-level metrics miss.
func ngramCosine(a, b string) float64 {
	va := ngramVector(a)
	vb := ngramVector(b)
	if len(va) == 0 || len(vb) == 0 {
		if len(va) == len(vb) {
			return 1.0
		}
		return 0.0
	}

	var dot, normA, normB float64
	for gram, ca := range va {
		normA += float64(ca * ca)
		if cb, ok := vb[gram]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range vb {
		normB += float64(cb * cb)
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func ngramVector(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams[string(runes[i:i+n])]++
		}
	}
	return grams
}

// fuzzySimilarity is the best of the three fuzzy metrics
func fuzzySimilarity(a, b string) float64 {
	best := jaccardWords(a, b)
	if lev := levenshteinSimilarity(a, b); lev > best {
		best = lev
	}
	if cos := ngramCosine(a, b); cos > best {
		best = cos
	}
	return best
}

// semanticSimilarity compares keyword sets directly and via the synonym
// table, returning the better score. Synonym matches count at a discount.
func semanticSimilarity(a, b []string, tables *LanguageTables) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := dedupe(a)
	setB := dedupe(b)

	direct := setJaccard(setA, setB)

	// Synonym-adjusted overlap: exact matches count 1.0, same-group
	// matches count SynonymMatchWeight, each B keyword consumed once.
	matchedB := make(map[string]bool, len(setB))
	var score float64
	pairs := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			score += 1.0
			matchedB[w] = true
			pairs++
			continue
		}
		for candidate := range setB {
			if matchedB[candidate] {
				continue
			}
			if tables.SameSynonymGroup(w, candidate) {
				score += SynonymMatchWeight
				matchedB[candidate] = true
				pairs++
				break
			}
		}
	}
	union := len(setA) + len(setB) - pairs
	adjusted := 0.0
	if union > 0 {
		adjusted = score / float64(union)
	}

	if adjusted > direct {
		return adjusted
	}
	return direct
}

func setJaccard(a, b map[string]struct{}) float64 {
	intersect := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersect++
		}
	}
	union := len(a) + len(b) - intersect
	if union == 0 {
		return 1.0
	}
	return float64(intersect) / float64(union)
}

func dedupe(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
