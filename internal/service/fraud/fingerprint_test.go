package fraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFingerprint_StableAcrossPunctuation(t *testing.T) {
	tables, err := LoadEmbeddedTables()
	require.NoError(t, err)
	n := NewNormalizer(tables)
	now := time.Now()

	a := NewFingerprint(n.Normalize("Bra service, trevlig personal!"), now)
	b := NewFingerprint(n.Normalize("bra service trevlig personal"), now)

	assert.Equal(t, a.ExactHash, b.ExactHash)
	assert.Equal(t, a.PhoneticHash, b.PhoneticHash)
	assert.Equal(t, a.StructuralHash, b.StructuralHash)
	assert.Equal(t, a.KeywordHash, b.KeywordHash)
	assert.Equal(t, 4, a.WordCount)
}

func TestNewFingerprint_KeywordOrderIrrelevant(t *testing.T) {
	tables, err := LoadEmbeddedTables()
	require.NoError(t, err)
	n := NewNormalizer(tables)
	now := time.Now()

	a := NewFingerprint(n.Normalize("kaffet gott och brödet färskt"), now)
	b := NewFingerprint(n.Normalize("brödet färskt och kaffet gott"), now)

	assert.Equal(t, a.KeywordHash, b.KeywordHash)
	assert.NotEqual(t, a.ExactHash, b.ExactHash)
}

func TestSortedKeywordKey(t *testing.T) {
	assert.Equal(t, "", sortedKeywordKey(nil))
	assert.Equal(t, "bra mat", sortedKeywordKey([]string{"mat", "bra", "mat"}))
}
