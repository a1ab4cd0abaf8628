package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"despesas_bot/internal/ledger/models"
	"despesas_bot/internal/logger"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix     = "despesas:report:"
	defaultTTL    = 10 * time.Minute
	maxKeyLength  = 250
	clientTimeout = 500 * time.Millisecond
)

// ErrCacheMiss 缓存中没有该用户的报表
var ErrCacheMiss = memcache.ErrCacheMiss

// store memcache 客户端中用到的部分
type store interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// MemcacheClient 分类报表缓存，值为 JSON 编码的分类合计
type MemcacheClient struct {
	client store
	ttl    time.Duration
}

type cachedTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// NewMemcache 连接 memcached 并 ping 一次
func NewMemcache(hosts []string) (*MemcacheClient, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("memcache hosts cannot be empty")
	}
	logger.L().Infof("Memcached hosts: %s", strings.Join(hosts, ","))

	mc := memcache.New(hosts...)
	mc.Timeout = clientTimeout
	if err := mc.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping memcached: %w", err)
	}
	return &MemcacheClient{client: mc, ttl: defaultTTL}, nil
}

func formatKey(user string) string {
	key := keyPrefix + user
	if len(key) > maxKeyLength {
		key = key[:maxKeyLength]
	}
	return key
}

// GetReport 读取缓存的报表，未命中时返回 ErrCacheMiss
func (mc *MemcacheClient) GetReport(user string) ([]models.CategoryTotal, error) {
	item, err := mc.client.Get(formatKey(user))
	if err != nil {
		return nil, err
	}

	var cached []cachedTotal
	if err := json.Unmarshal(item.Value, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached report: %w", err)
	}

	totals := make([]models.CategoryTotal, len(cached))
	for i, c := range cached {
		totals[i] = models.CategoryTotal{Category: c.Category, Total: c.Total}
	}
	return totals, nil
}

// CacheReport 写入报表
func (mc *MemcacheClient) CacheReport(user string, totals []models.CategoryTotal) error {
	cached := make([]cachedTotal, len(totals))
	for i, t := range totals {
		cached[i] = cachedTotal{Category: t.Category, Total: t.Total}
	}

	value, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return mc.client.Set(&memcache.Item{
		Key:        formatKey(user),
		Value:      value,
		Expiration: int32(mc.ttl / time.Second),
	})
}

// InvalidateReport 删除报表，本来就不存在时不算错误
func (mc *MemcacheClient) InvalidateReport(user string) error {
	err := mc.client.Delete(formatKey(user))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}
