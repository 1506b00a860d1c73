package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kundrost/feedback-rewards-backend/internal/infrastructure/config"
	"github.com/kundrost/feedback-rewards-backend/internal/service/fraud"
)

// Fingerprint mirror key prefix. One Redis hash per exact content hash,
// fields are session ids, values are submission timestamps.
const fingerprintPrefix = "kundrost:fraud:fp:"

// RedisFingerprintMirror shares exact content fingerprints between engine
// instances so a transcript replayed against another instance still hits.
// Fuzzy and semantic matching stay local; only hash equality crosses the
// wire.
type RedisFingerprintMirror struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisFingerprintMirror connects to Redis and verifies the connection
func NewRedisFingerprintMirror(cfg *config.RedisConfig, logger *zap.Logger) (*RedisFingerprintMirror, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("fingerprint mirror initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB))

	return &RedisFingerprintMirror{client: client, logger: logger}, nil
}

// Store mirrors one fingerprint under its exact hash. The whole hash key
// expires ttl after the most recent write, matching local history eviction.
func (m *RedisFingerprintMirror) Store(ctx context.Context, exactHash string, sessionID uuid.UUID, ts time.Time, ttl time.Duration) error {
	key := fingerprintPrefix + exactHash

	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, key, sessionID.String(), ts.UTC().Format(time.RFC3339Nano))
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Error("fingerprint mirror store failed",
			zap.String("hash", exactHash),
			zap.Error(err))
		return fmt.Errorf("mirror store failed: %w", err)
	}
	return nil
}

// FindExact returns every mirrored session with the given exact hash.
// Entries with unparseable fields are skipped, not fatal.
func (m *RedisFingerprintMirror) FindExact(ctx context.Context, exactHash string) ([]fraud.MirrorHit, error) {
	key := fingerprintPrefix + exactHash

	fields, err := m.client.HGetAll(ctx, key).Result()
	if err != nil {
		m.logger.Error("fingerprint mirror lookup failed",
			zap.String("hash", exactHash),
			zap.Error(err))
		return nil, fmt.Errorf("mirror lookup failed: %w", err)
	}

	hits := make([]fraud.MirrorHit, 0, len(fields))
	for field, value := range fields {
		sessionID, err := uuid.Parse(field)
		if err != nil {
			m.logger.Warn("skipping malformed mirror session id",
				zap.String("hash", exactHash),
				zap.String("field", field))
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			m.logger.Warn("skipping malformed mirror timestamp",
				zap.String("hash", exactHash),
				zap.String("session_id", field))
			continue
		}
		hits = append(hits, fraud.MirrorHit{SessionID: sessionID, Timestamp: ts})
	}
	return hits, nil
}

// Ping verifies the Redis connection, for readiness probes
func (m *RedisFingerprintMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close releases the Redis connection
func (m *RedisFingerprintMirror) Close() error {
	return m.client.Close()
}
