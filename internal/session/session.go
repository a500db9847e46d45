package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Baaaki/stockroom/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a token does not resolve to a live
// session (never issued, destroyed, or expired).
var ErrNotFound = errors.New("session not found")

// Data is the server-held identity bound to a session token. It is the
// sole source of truth for "who is calling" for the token's lifetime.
type Data struct {
	UserID   uuid.UUID   `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// Store issues opaque tokens and resolves them back to session data.
type Store interface {
	Create(ctx context.Context, data Data) (string, error)
	Get(ctx context.Context, token string) (*Data, error)
	Destroy(ctx context.Context, token string) error
	Close() error
}

// RedisStore keeps sessions in Redis under session:<token> with the
// configured TTL, so expiry needs no sweeper of its own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreWithClient wraps an existing client (shared with the
// rate limiter, and miniredis in tests).
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// TTL returns the fixed session lifetime, used for the cookie Max-Age.
func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

func (s *RedisStore) Create(ctx context.Context, data Data) (string, error) {
	token := uuid.NewString()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Data, error) {
	payload, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var data Data
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, err
	}

	return &data, nil
}

func (s *RedisStore) Destroy(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func sessionKey(token string) string {
	return "session:" + token
}
