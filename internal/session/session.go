package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound means the session id resolves to nothing; callers treat this as
// "unauthenticated" on both the HTTP and realtime paths.
var ErrNotFound = errors.New("session not found")

// Lifetime is the absolute session expiry, matching the one-year cookie.
const Lifetime = 365 * 24 * time.Hour

// Identity is the authenticated user's data copied into the session at login.
// A later profile change is not reflected here until re-login; that staleness
// window is accepted.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Store holds server-side sessions keyed by an opaque id.
type Store interface {
	Create(ctx context.Context, ident Identity) (string, error)
	Get(ctx context.Context, id string) (Identity, error)
	Destroy(ctx context.Context, id string) error
}

// RedisStore keeps sessions in Redis with an absolute TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = Lifetime
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string { return "session:" + id }

func (s *RedisStore) Create(ctx context.Context, ident Identity) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(ident)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, key(id), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Identity, error) {
	payload, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	var ident Identity
	if err := json.Unmarshal(payload, &ident); err != nil {
		return Identity{}, ErrNotFound
	}
	return ident, nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
