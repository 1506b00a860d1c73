package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kundrost/feedback-rewards-backend/internal/infrastructure/config"
)

func setupTestMirror(t *testing.T) (*RedisFingerprintMirror, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mirror, err := NewRedisFingerprintMirror(&config.RedisConfig{URL: mr.Addr()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { mirror.Close() })

	return mirror, mr
}

func TestFingerprintMirror_StoreAndFind(t *testing.T) {
	mirror, _ := setupTestMirror(t)
	ctx := context.Background()

	hash := "a1b2c3"
	first := uuid.New()
	second := uuid.New()
	ts := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, mirror.Store(ctx, hash, first, ts, time.Hour))
	require.NoError(t, mirror.Store(ctx, hash, second, ts.Add(time.Minute), time.Hour))

	hits, err := mirror.FindExact(ctx, hash)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	ids := map[uuid.UUID]time.Time{}
	for _, h := range hits {
		ids[h.SessionID] = h.Timestamp
	}
	assert.True(t, ids[first].Equal(ts))
	assert.True(t, ids[second].Equal(ts.Add(time.Minute)))
}

func TestFingerprintMirror_MissReturnsEmpty(t *testing.T) {
	mirror, _ := setupTestMirror(t)

	hits, err := mirror.FindExact(context.Background(), "unknown-hash")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFingerprintMirror_EntriesExpire(t *testing.T) {
	mirror, mr := setupTestMirror(t)
	ctx := context.Background()

	require.NoError(t, mirror.Store(ctx, "deadbeef", uuid.New(), time.Now(), time.Minute))
	mr.FastForward(2 * time.Minute)

	hits, err := mirror.FindExact(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFingerprintMirror_SkipsMalformedFields(t *testing.T) {
	mirror, mr := setupTestMirror(t)
	ctx := context.Background()

	id := uuid.New()
	ts := time.Now().UTC()
	require.NoError(t, mirror.Store(ctx, "cafebabe", id, ts, time.Hour))
	mr.HSet(fingerprintPrefix+"cafebabe", "not-a-uuid", "whatever")

	hits, err := mirror.FindExact(ctx, "cafebabe")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, id, hits[0].SessionID)
}
