package stamp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// CacheKeySuffix 持久化缓存键的固定命名空间后缀
const CacheKeySuffix = "$STAMP_CLASSMETADATA"

// Cache 两级触发器配置缓存：进程内 memo 表在前，
// 可选的持久化后端在后。条目按类名写入一次，之后只读。
type Cache struct {
	mu     sync.RWMutex
	local  map[string]*Configuration
	store  Store
	logger *logrus.Logger
}

// NewCache 创建配置缓存，store 为 nil 时仅使用进程内 memo 表
func NewCache(store Store, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
	}
	return &Cache{
		local:  make(map[string]*Configuration),
		store:  store,
		logger: logger,
	}
}

// CacheKey 由完全限定类名推导持久化缓存键
func CacheKey(class string) string {
	return class + CacheKeySuffix
}

// Get 按类名取配置。进程内未命中时回源持久化后端，
// 后端命中则回填 memo 表。两级都未命中返回 false，
// 由调用方在类元数据加载时触发扫描。
func (c *Cache) Get(ctx context.Context, class string) (*Configuration, bool) {
	c.mu.RLock()
	cfg, ok := c.local[class]
	c.mu.RUnlock()
	if ok {
		return cfg, true
	}

	if c.store == nil {
		return nil, false
	}

	raw, found, err := c.store.Fetch(ctx, CacheKey(class))
	if err != nil {
		c.logger.Debugf("stamp: config store fetch failed for %s: %v", class, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	cfg = &Configuration{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		c.logger.Debugf("stamp: config store entry for %s unreadable: %v", class, err)
		return nil, false
	}

	c.mu.Lock()
	c.local[class] = cfg
	c.mu.Unlock()
	return cfg, true
}

// Put 缓存一次成功扫描产出的配置。空配置不缓存，
// 无触发器的类始终走廉价的未命中路径。
func (c *Cache) Put(ctx context.Context, class string, cfg *Configuration) {
	if cfg == nil || cfg.Empty() {
		return
	}

	c.mu.Lock()
	c.local[class] = cfg
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		c.logger.Debugf("stamp: config for %s not serializable: %v", class, err)
		return
	}
	// 无过期时间
	if err := c.store.Save(ctx, CacheKey(class), raw, 0); err != nil {
		c.logger.Debugf("stamp: config store save failed for %s: %v", class, err)
	}
}
