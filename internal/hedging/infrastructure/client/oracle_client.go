// Package client 外部协作方（预言机、抵押金库、区块源）的 HTTP 实现
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantora/hedgingengine/pkg/cache"
	"github.com/quantora/hedgingengine/pkg/logger"
)

const oraclePriceCacheKey = "hedging:oracle:eurusd"

// HTTPPriceOracle EUR/USD 价格预言机客户端
// 价格源自行处理过期与熔断，返回 valid=false 时本引擎必须拒绝操作；
// 短 TTL 的 Redis 缓存削峰，同一区块内的多次读取命中缓存
type HTTPPriceOracle struct {
	endpoint string
	client   *http.Client
	cache    *cache.RedisCache
	cacheTTL time.Duration
}

// NewHTTPPriceOracle 创建预言机客户端，cache 可为 nil
func NewHTTPPriceOracle(endpoint string, timeout time.Duration, c *cache.RedisCache, cacheTTL time.Duration) *HTTPPriceOracle {
	return &HTTPPriceOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

type oracleResponse struct {
	Price   string `json:"price"`
	IsValid bool   `json:"is_valid"`
}

// GetPrice 读取 EUR/USD 价格
func (o *HTTPPriceOracle) GetPrice(ctx context.Context) (decimal.Decimal, bool, error) {
	if o.cache != nil {
		if data, ok, err := o.cache.Get(ctx, oraclePriceCacheKey); err == nil && ok {
			if price, perr := decimal.NewFromString(string(data)); perr == nil {
				return price, true, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint, nil)
	if err != nil {
		return decimal.Zero, false, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var body oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, false, fmt.Errorf("decode oracle response: %w", err)
	}
	if !body.IsValid {
		return decimal.Zero, false, nil
	}

	price, err := decimal.NewFromString(body.Price)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse oracle price: %w", err)
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, oraclePriceCacheKey, []byte(price.String()), o.cacheTTL); err != nil {
			logger.Warn(ctx, "failed to cache oracle price", "error", err)
		}
	}
	return price, true, nil
}
