package cache

import (
	"context"
	"time"

	"StoreSupport/pkg/redis"
)

// WebhookDedup 基于 redis 的重投去重；redis 不可用时退化为不去重，由数据库唯一约束兜底
type WebhookDedup struct {
	rdb *redis.Client
}

func NewWebhookDedup(rdb *redis.Client) *WebhookDedup {
	return &WebhookDedup{rdb: rdb}
}

func (d *WebhookDedup) Seen(ctx context.Context, key string) (bool, error) {
	if d == nil || !d.rdb.IsConnected() {
		return false, nil
	}
	return d.rdb.Exists(ctx, key)
}

func (d *WebhookDedup) Remember(ctx context.Context, key string, ttl time.Duration) error {
	if d == nil || !d.rdb.IsConnected() {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	_, err := d.rdb.SetNX(ctx, key, 1, ttl)
	return err
}
