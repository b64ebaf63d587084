package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"NewsPulse/internal/config"
	"NewsPulse/internal/model"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "newspulse:seen:"

// SeenCache 入库去重的快速路径，命中后不再查数据库
type SeenCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
	Close() error
}

// Key 与数据库去重条件一致：(实例, topic, variant, 类别, 标题, 日期, 内容, 来源)
func Key(instance model.InstanceID, topic model.Topic, variant model.Variant, a *model.Article) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d\x00%s\x00%s\x00%d\x00%s\x00%s\x00%s\x00%s",
		instance, topic, variant, a.CategoryID, a.Title, a.Date, a.Content, a.Source)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 连接失败直接返回错误，由调用方决定是否降级
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接redis失败: %w", err)
	}
	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func (c *RedisCache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) Mark(ctx context.Context, key string) error {
	return c.client.Set(ctx, key, 1, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop 未配置 redis 时使用，所有文章都走数据库去重
type Noop struct{}

func (Noop) Seen(context.Context, string) (bool, error) { return false, nil }
func (Noop) Mark(context.Context, string) error         { return nil }
func (Noop) Close() error                               { return nil }
