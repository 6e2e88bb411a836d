package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"beltche-mcp/pkg/logging"
)

const (
	// KeyPrefix namespaces token records in Redis.
	KeyPrefix = "beltche:token:"

	// minRedisTTL guards against near-zero TTLs from clock skew or records
	// that are already expired when written.
	minRedisTTL = 60 * time.Second
)

// RedisStore keeps one key per link token and lets Redis expire it.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	now        func() time.Time
}

// wireRecord is the JSON value stored under each key. Times are Unix milliseconds.
type wireRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, defaultTTL time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logging.Info("TokenStore", "Connected to Redis at %s", opts.Addr)
	return NewRedisStoreWithClient(client, defaultTTL), nil
}

// NewRedisStoreWithClient wraps an existing client. The store takes ownership of it.
func NewRedisStoreWithClient(client *redis.Client, defaultTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, defaultTTL: defaultTTL, now: time.Now}
}

func redisKey(handle string) string {
	return KeyPrefix + handle
}

// ttlFor returns the Redis TTL for rec: the remaining lifetime rounded up to
// whole seconds, or the default TTL when rec has no expiry, never below a minute.
func (s *RedisStore) ttlFor(rec *Record) time.Duration {
	ttl := s.defaultTTL
	if rec.HasExpiry() {
		secs := math.Ceil(rec.ExpiresAt.Sub(s.now()).Seconds())
		ttl = time.Duration(secs) * time.Second
	}
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}
	return ttl
}

func (s *RedisStore) Get(ctx context.Context, handle string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKey(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode token record: %w", err)
	}
	rec := fromWire(w)

	// The TTL floor can keep a record alive past its expiry.
	if rec.ExpiredAt(s.now()) {
		if err := s.client.Del(ctx, redisKey(handle)).Err(); err != nil {
			logging.Warn("TokenStore", "Failed to purge expired token for %s: %v", logging.MaskHandle(handle), err)
		}
		return nil, nil
	}
	return rec, nil
}

func (s *RedisStore) Set(ctx context.Context, handle string, rec *Record) error {
	data, err := json.Marshal(toWire(rec))
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(handle), data, s.ttlFor(rec)).Err(); err != nil {
		logging.Error("TokenStore", err, "Failed to store token in Redis")
		return fmt.Errorf("failed to store token in redis: %w", err)
	}
	logging.Debug("TokenStore", "Stored token in Redis for %s", logging.MaskHandle(handle))
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, redisKey(handle)).Err(); err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}
	logging.Debug("TokenStore", "Deleted token from Redis for %s", logging.MaskHandle(handle))
	return nil
}

func (s *RedisStore) Has(ctx context.Context, handle string) (bool, error) {
	rec, err := s.Get(ctx, handle)
	return rec != nil, err
}

// ClearExpired always returns 0; Redis expires keys itself.
func (s *RedisStore) ClearExpired(_ context.Context) (int, error) {
	return 0, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func toWire(rec *Record) wireRecord {
	w := wireRecord{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		CreatedAt:    rec.CreatedAt.UnixMilli(),
	}
	if rec.HasExpiry() {
		w.ExpiresAt = rec.ExpiresAt.UnixMilli()
	}
	return w
}

func fromWire(w wireRecord) *Record {
	rec := &Record{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
		CreatedAt:    time.UnixMilli(w.CreatedAt).UTC(),
	}
	if w.ExpiresAt != 0 {
		rec.ExpiresAt = time.UnixMilli(w.ExpiresAt).UTC()
	}
	return rec
}
