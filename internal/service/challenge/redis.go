package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// challengeKey returns the Redis key holding the challenge for a pair.
func challengeKey(phone string, purpose Purpose) string {
	return "challenge:" + string(purpose) + ":" + phone
}

// RedisStore keeps challenge records in Redis, one key per (phone, purpose).
// SET with a TTL gives superseding writes and automatic expiry cleanup in a
// single operation; the stored ExpiresAt stays authoritative for verification
// because the key TTL only bounds garbage retention.
type RedisStore struct {
	rdb *redis.Client
	// retention pads the key TTL past the challenge window so terminal
	// records (exhausted, verified) remain inspectable briefly.
	retention time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, retention: 5 * time.Minute}
}

func (s *RedisStore) Put(ctx context.Context, ch *Challenge) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	ttl := time.Until(ch.ExpiresAt) + s.retention
	return s.rdb.Set(ctx, challengeKey(ch.Phone, ch.Purpose), data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, phone string, purpose Purpose) (*Challenge, error) {
	data, err := s.rdb.Get(ctx, challengeKey(phone, purpose)).Bytes()
	if err == redis.Nil {
		return nil, ErrNoChallenge
	}
	if err != nil {
		return nil, fmt.Errorf("redis get challenge: %w", err)
	}
	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return &ch, nil
}

func (s *RedisStore) Update(ctx context.Context, ch *Challenge) error {
	key := challengeKey(ch.Phone, ch.Purpose)
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	// KEEPTTL: an attempt increment must not extend the window.
	return s.rdb.Set(ctx, key, data, redis.KeepTTL).Err()
}

func (s *RedisStore) Delete(ctx context.Context, phone string, purpose Purpose) error {
	return s.rdb.Del(ctx, challengeKey(phone, purpose)).Err()
}
