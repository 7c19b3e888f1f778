package api

import (
	"container/list"
	"context"
	"sync"
	"time"

	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// ResultCache：同步比对结果缓存，键为请求摘要，值为响应体
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
}

// NewResultCache：配置了 Redis 时使用 Redis，否则退回进程内 LRU
func NewResultCache(rc *redis.Client, ttl time.Duration) ResultCache {
	if rc != nil {
		return &redisCache{rc: rc, ttl: ttl}
	}
	return NewLRU(256, ttl)
}

type redisCache struct {
	rc  *redis.Client
	ttl time.Duration
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Debug("cache_get_error", "key", key, "err", err)
		}
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return b, true
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte) {
	if err := c.rc.Set(ctx, key, val, c.ttl).Err(); err != nil {
		logger.L().Debug("cache_set_error", "key", key, "err", err)
	}
}

// 文档注释：本地 LRU 缓存（请求摘要为键）
// 背景：相同输入的重复比对在短周期内直接返回上次结果，避免重复叠置运算；TTL 可调。
// 约束：容量按条目计；过期条目在读取时惰性淘汰。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type kv struct {
	k   string
	v   []byte
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *LRU) Get(_ context.Context, k string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(kv)
		if time.Now().Before(it.exp) {
			c.lst.MoveToFront(e)
			metrics.CacheHitsTotal.Inc()
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (c *LRU) Set(_ context.Context, k string, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = kv{k: k, v: v, exp: time.Now().Add(c.ttl)}
		c.lst.MoveToFront(e)
		return
	}
	e := c.lst.PushFront(kv{k: k, v: v, exp: time.Now().Add(c.ttl)})
	c.dict[k] = e
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back != nil {
			it := back.Value.(kv)
			delete(c.dict, it.k)
			c.lst.Remove(back)
		}
	}
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
