package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "courtside:clock:"

// RedisStore keeps checkpoints in Redis with the staleness window as TTL, so
// expired checkpoints vanish on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Dial opens a client and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisStore) Save(ctx context.Context, c Clock) error {
	if c.SavedAt.IsZero() {
		c.SavedAt = time.Now()
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+c.GameID, b, r.ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, gameID string) (Clock, error) {
	raw, err := r.client.Get(ctx, keyPrefix+gameID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Clock{}, ErrNoCheckpoint
	}
	if err != nil {
		return Clock{}, err
	}
	var c Clock
	if err := json.Unmarshal(raw, &c); err != nil {
		return Clock{}, err
	}
	return c, nil
}

func (r *RedisStore) Discard(ctx context.Context, gameID string) error {
	return r.client.Del(ctx, keyPrefix+gameID).Err()
}
