package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smartlaunch/pkg/logging"
)

// Default timeouts for Redis operations.
const (
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
)

// DefaultRedisKeyPrefix namespaces verifier keys.
const DefaultRedisKeyPrefix = "smartlaunch:pkce:"

// RedisConfig holds the connection settings for RedisVerifierStore.
type RedisConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisVerifierStore keeps pending verifiers in Redis so that any replica can
// complete a callback. Expiry is delegated to Redis key TTLs and Take uses
// GETDEL, which reads and deletes in one server-side step.
type RedisVerifierStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisVerifierStore connects to Redis and verifies the connection.
func NewRedisVerifierStore(ctx context.Context, cfg RedisConfig) (*RedisVerifierStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultRedisWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logging.Info("VerifierStore", "Using redis verifier store at %s", cfg.Addr)
	return NewRedisVerifierStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisVerifierStoreWithClient wraps a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisVerifierStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisVerifierStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultVerifierTTL
	}
	return &RedisVerifierStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Put stores verifier under state with the configured TTL.
func (s *RedisVerifierStore) Put(ctx context.Context, state, verifier string) error {
	if err := s.client.Set(ctx, s.key(state), verifier, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verifier: %w", err)
	}
	return nil
}

// Take returns and removes the verifier for state.
func (s *RedisVerifierStore) Take(ctx context.Context, state string) (string, error) {
	verifier, err := s.client.GetDel(ctx, s.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrVerifierNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to take verifier: %w", err)
	}
	return verifier, nil
}

// Close closes the underlying client.
func (s *RedisVerifierStore) Close() error {
	return s.client.Close()
}

func (s *RedisVerifierStore) key(state string) string {
	return s.keyPrefix + state
}
