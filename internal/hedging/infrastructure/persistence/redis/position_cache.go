// Package redis 提供仓位快照的 Redis 缓存，读路径免打主库
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/quantora/hedgingengine/internal/hedging/domain"
	"github.com/quantora/hedgingengine/pkg/cache"
)

const positionKeyPrefix = "hedging:position:"

// PositionCache 仓位快照缓存
// 值为仓位的紧凑二进制编码（见 domain 包的 Pack/Unpack）
type PositionCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewPositionCache 创建缓存
func NewPositionCache(c *cache.RedisCache, ttl time.Duration) *PositionCache {
	return &PositionCache{cache: c, ttl: ttl}
}

// Put 写入仓位快照
func (pc *PositionCache) Put(ctx context.Context, pos *domain.Position) error {
	data, err := domain.PackPosition(pos)
	if err != nil {
		return fmt.Errorf("pack position %d: %w", pos.PositionID, err)
	}
	return pc.cache.Set(ctx, positionKey(pos.PositionID), data, pc.ttl)
}

// Get 读取仓位快照，缓存未命中返回 (nil, false, nil)
func (pc *PositionCache) Get(ctx context.Context, positionID int64) (*domain.Position, bool, error) {
	data, ok, err := pc.cache.Get(ctx, positionKey(positionID))
	if err != nil || !ok {
		return nil, false, err
	}
	pos, err := domain.UnpackPosition(data)
	if err != nil {
		return nil, false, fmt.Errorf("unpack position %d: %w", positionID, err)
	}
	return pos, true, nil
}

// Invalidate 删除仓位快照
func (pc *PositionCache) Invalidate(ctx context.Context, positionID int64) error {
	return pc.cache.Delete(ctx, positionKey(positionID))
}

func positionKey(positionID int64) string {
	return fmt.Sprintf("%s%d", positionKeyPrefix, positionID)
}
