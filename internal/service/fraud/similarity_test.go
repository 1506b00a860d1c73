package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"bra", "bra", 0},
		{"bra service", "bra servicen", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, levenshteinSimilarity("abc", "abc"))
	assert.Equal(t, 1.0, levenshteinSimilarity("", ""))
	assert.Equal(t, 0.0, levenshteinSimilarity("abc", "xyz"))
	assert.InDelta(t, 0.75, levenshteinSimilarity("abcd", "abcx"), 0.001)
}

func TestJaccardWords(t *testing.T) {
	assert.Equal(t, 1.0, jaccardWords("bra mat", "mat bra"))
	assert.Equal(t, 0.0, jaccardWords("bra mat", "uselt kaffe"))
	assert.InDelta(t, 1.0/3.0, jaccardWords("bra mat", "bra kaffe"), 0.001)
	assert.Equal(t, 1.0, jaccardWords("", ""))
}

func TestNgramCosine(t *testing.T) {
	assert.InDelta(t, 1.0, ngramCosine("bra service", "bra service"), 0.001)
	assert.Equal(t, 0.0, ngramCosine("abc", "xyz"))

	// Transposed words keep most of their n-grams
	sim := ngramCosine("maten var god", "god var maten")
	assert.Greater(t, sim, 0.5)
}

func TestFuzzySimilarity_TakesBestMetric(t *testing.T) {
	// Word order changes kill Levenshtein but not Jaccard
	sim := fuzzySimilarity("bra mat trevlig personal", "trevlig personal bra mat")
	assert.Equal(t, 1.0, sim)
}

func TestSemanticSimilarity(t *testing.T) {
	tables, err := LoadEmbeddedTables()
	assert.NoError(t, err)

	t.Run("identical keyword sets", func(t *testing.T) {
		sim := semanticSimilarity([]string{"maten", "bra", "personalen"}, []string{"maten", "bra", "personalen"}, tables)
		assert.Equal(t, 1.0, sim)
	})

	t.Run("synonym swap scores high but below exact", func(t *testing.T) {
		a := []string{"maten", "bra", "personalen", "trevlig"}
		b := []string{"maten", "najs", "personalen", "trevlig"}
		sim := semanticSimilarity(a, b, tables)
		assert.Greater(t, sim, 0.9)
		assert.Less(t, sim, 1.0)
	})

	t.Run("disjoint sets score zero", func(t *testing.T) {
		sim := semanticSimilarity([]string{"kaffe"}, []string{"klippning"}, tables)
		assert.Equal(t, 0.0, sim)
	})

	t.Run("empty sets", func(t *testing.T) {
		assert.Equal(t, 1.0, semanticSimilarity(nil, nil, tables))
		assert.Equal(t, 0.0, semanticSimilarity([]string{"bra"}, nil, tables))
	})
}
