package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisStore keeps the credential in Redis so every process sharing the instance
// reuses the same token. Both keys expire together with the token.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed credential store.
// prefix is prepended to the key names; pass "" to use them as is.
func NewRedisStore(redisClient *redis.Client, prefix string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Get retrieves the stored credential.
// Returns ErrCredentialNotFound if either key is missing.
func (s *RedisStore) Get(ctx context.Context) (*Credential, error) {
	vals, err := s.redis.MGet(ctx, s.key(KeyToken), s.key(KeyExpiry)).Result()
	if err != nil {
		StoreErrors.WithLabelValues(backendRedis, "get").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	token, okToken := vals[0].(string)
	expiryStr, okExpiry := vals[1].(string)
	if !okToken || !okExpiry {
		StoreMisses.WithLabelValues(backendRedis).Inc()
		return nil, ErrCredentialNotFound
	}

	expiry, err := decodeExpiry(expiryStr)
	if err != nil {
		StoreErrors.WithLabelValues(backendRedis, "get").Inc()
		return nil, err
	}

	StoreHits.WithLabelValues(backendRedis).Inc()
	return &Credential{Token: token, Expiry: expiry}, nil
}

// Set replaces the stored credential. The keys expire when the token does;
// a credential without a future expiry is stored without a TTL.
func (s *RedisStore) Set(ctx context.Context, cred Credential) error {
	ttl := cred.TTL(s.now())

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(KeyToken), cred.Token, ttl)
		pipe.Set(ctx, s.key(KeyExpiry), encodeExpiry(cred.Expiry), ttl)
		return nil
	})
	if err != nil {
		StoreErrors.WithLabelValues(backendRedis, "set").Inc()
		return fmt.Errorf("redis set credential: %w", err)
	}

	return nil
}
