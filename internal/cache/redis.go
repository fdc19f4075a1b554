package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "transcript:"

// Redis stores JSON documents keyed by student ID with a fixed TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: DefaultPrefix, ttl: ttl}
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

func (r *Redis) key(studentID uuid.UUID) string {
	return r.prefix + studentID.String()
}

func (r *Redis) Load(ctx context.Context, studentID uuid.UUID, dst any) (bool, error) {
	data, err := r.client.Get(ctx, r.key(studentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		r.client.Del(ctx, r.key(studentID))
		return false, fmt.Errorf("failed to decode cached entry: %w", err)
	}
	return true, nil
}

func (r *Redis) Store(ctx context.Context, studentID uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(studentID), data, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, studentID uuid.UUID) error {
	return r.client.Del(ctx, r.key(studentID)).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
