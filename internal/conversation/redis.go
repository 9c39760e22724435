package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "helpdesk:conv:"

// RedisStore keeps states as JSON values so open forms survive a restart.
// Keys have no TTL: an abandoned form lives until cancelled or replaced.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to url and pings it.
func NewRedisStore(url string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis: url is empty")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisStore{client: c}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(c *redis.Client) *RedisStore {
	return &RedisStore{client: c}
}

var _ Store = (*RedisStore)(nil)

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*State, error) {
	raw, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		// An undecodable state cannot be resumed; drop it like an unknown form.
		if derr := r.Delete(ctx, userID); derr != nil {
			return nil, derr
		}
		return nil, nil
	}
	return &st, nil
}

func (r *RedisStore) Put(ctx context.Context, userID int64, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redis: encode state: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: put state: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis: delete state: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
