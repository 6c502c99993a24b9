package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "roomdesk:snapshot:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis shares snapshots between desk instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, conf RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second) //nolint:gomnd
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", conf.Addr, err)
	}

	return NewRedisWithClient(client, conf.TTL), nil
}

func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(roomID int64) string {
	return keyPrefix + strconv.FormatInt(roomID, 10)
}

func (c *Redis) Get(ctx context.Context, roomID int64) (*Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("get snapshot of room %d: %w", roomID, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode snapshot of room %d: %w", roomID, err)
	}

	return &snapshot, true, nil
}

func (c *Redis) Put(ctx context.Context, roomID int64, snapshot *Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot of room %d: %w", roomID, err)
	}

	if err := c.client.Set(ctx, key(roomID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot of room %d: %w", roomID, err)
	}

	return nil
}

func (c *Redis) Invalidate(ctx context.Context, roomID int64) error {
	if err := c.client.Del(ctx, key(roomID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot of room %d: %w", roomID, err)
	}

	return nil
}

func (c *Redis) Close() error {
	return c.client.Close() //nolint:wrapcheck
}
