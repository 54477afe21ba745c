package storage

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis keys written by RedisStorage.
const (
	redisKeyLatestOpportunities = "edge:opportunities:latest"
	redisKeyLatestRun           = "edge:run:latest"
)

func redisKeyOdds(sport string) string {
	return fmt.Sprintf("edge:odds:%s", sport)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long a published snapshot stays readable.
	TTL    time.Duration
	Logger *zap.Logger
}

// RedisStorage publishes the latest snapshot for other services to read.
// Only the most recent run is kept; older runs are overwritten.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type runSummary struct {
	RunID         string    `json:"run_id"`
	CapturedAt    time.Time `json:"captured_at"`
	Opportunities int       `json:"opportunities"`
	Sports        []string  `json:"sports"`
	Failures      []string  `json:"failures"`
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(ctx context.Context, cfg *RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	cfg.Logger.Info("redis-storage-connected", zap.String("addr", cfg.Addr))

	return &RedisStorage{
		client: client,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
	}, nil
}

// StoreSnapshot writes the latest opportunities, per-sport lines and a run summary in one pipeline.
func (r *RedisStorage) StoreSnapshot(ctx context.Context, snap *Snapshot) error {
	values, err := redisValues(snap)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	for key, value := range values {
		pipe.Set(ctx, key, value, r.ttl)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	r.logger.Debug("snapshot-published",
		zap.String("run-id", snap.RunID.String()),
		zap.Int("keys", len(values)))
	return nil
}

// Close closes the Redis client.
func (r *RedisStorage) Close() error {
	r.logger.Info("closing-redis-storage")
	return r.client.Close()
}

// redisValues encodes a snapshot into the keys it is published under.
func redisValues(snap *Snapshot) (map[string][]byte, error) {
	values := make(map[string][]byte, len(snap.Lines)+2)

	opps, err := json.Marshal(snap.Opportunities)
	if err != nil {
		return nil, fmt.Errorf("marshal opportunities: %w", err)
	}
	values[redisKeyLatestOpportunities] = opps

	sports := sortedKeys(snap.Lines)
	for _, sport := range sports {
		body, err := json.Marshal(snap.Lines[sport])
		if err != nil {
			return nil, fmt.Errorf("marshal odds for %s: %w", sport, err)
		}
		values[redisKeyOdds(sport)] = body
	}

	summary, err := json.Marshal(runSummary{
		RunID:         snap.RunID.String(),
		CapturedAt:    snap.CapturedAt,
		Opportunities: len(snap.Opportunities),
		Sports:        sports,
		Failures:      snap.Failures,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run summary: %w", err)
	}
	values[redisKeyLatestRun] = summary

	return values, nil
}
