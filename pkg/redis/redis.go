package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotConnected = errors.New("redis not connected")

// Client go-redis 的薄封装，nil 或未连接时所有操作返回 ErrNotConnected
type Client struct {
	c *redis.Client
}

func NewClient(c *redis.Client) *Client {
	return &Client{c: c}
}

func (r *Client) IsConnected() bool {
	return r != nil && r.c != nil
}

// Raw 原始客户端（高级用法）
func (r *Client) Raw() *redis.Client {
	if r == nil {
		return nil
	}
	return r.c
}

func (r *Client) Close() error {
	if !r.IsConnected() {
		return nil
	}
	return r.c.Close()
}

// Get key 不存在时返回 ("", nil)
func (r *Client) Get(ctx context.Context, key string) (string, error) {
	if !r.IsConnected() {
		return "", ErrNotConnected
	}
	v, err := r.c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r *Client) Exists(ctx context.Context, key string) (bool, error) {
	if !r.IsConnected() {
		return false, ErrNotConnected
	}
	n, err := r.c.Exists(ctx, key).Result()
	return n > 0, err
}

// SetNX 仅在 key 不存在时设置值
func (r *Client) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	if !r.IsConnected() {
		return false, ErrNotConnected
	}
	return r.c.SetNX(ctx, key, value, expiration).Result()
}

func (r *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if !r.IsConnected() {
		return 0, ErrNotConnected
	}
	return r.c.Del(ctx, keys...).Result()
}
