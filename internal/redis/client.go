package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// EventChannel is the pub/sub channel carrying match lifecycle events
// for a single user.
func EventChannel(userID string) string {
	return fmt.Sprintf("events:%s", userID)
}

// PairLockKey builds the advisory lock key for a candidate pair.
// The two ids are sorted so both sides of a contended attempt compute
// the same key.
func PairLockKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("pairlock:%s:%s", a, b)
}

// AcquirePairLock takes the advisory lock for a candidate pair. The lock
// expires on its own after ttl so a crashed pairing attempt cannot wedge
// the pair forever.
func (c *Client) AcquirePairLock(ctx context.Context, a, b string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, PairLockKey(a, b), "1", ttl).Result()
}

// ReleasePairLock drops the advisory lock early. Best effort: an
// unreleased lock simply expires.
func (c *Client) ReleasePairLock(ctx context.Context, a, b string) error {
	return c.Del(ctx, PairLockKey(a, b)).Err()
}
