package initial

import (
	"context"
	"fmt"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/pkg/redis"
	"StoreSupport/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis 未配置主机或连接失败时返回未连接的客户端，调用方按可选依赖处理
func InitRedis(conf config.RedisConfig) *redis.Client {
	if conf.Host == "" {
		zlog.Info("Redis 未配置，跳过初始化")
		return redis.NewClient(nil)
	}
	port := conf.Port
	if port == 0 {
		port = 6379
	}
	addr := fmt.Sprintf("%s:%d", conf.Host, port)
	zlog.Info("Redis connecting", zap.String("addr", addr))

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     conf.Password,
		DB:           conf.DB,
		PoolSize:     conf.PoolSize,
		MinIdleConns: conf.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Error("Redis 连接失败", zap.Error(err))
		_ = client.Close()
		return redis.NewClient(nil)
	}

	zlog.Info("Redis 连接成功")
	return redis.NewClient(client)
}
