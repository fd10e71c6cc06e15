package stamp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingStore struct{}

func (failingStore) Fetch(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingStore) Save(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func TestCache_PutGet(t *testing.T) {
	cache := NewCache(nil, nil)
	cfg := &Configuration{Create: []string{"CreatedAt"}}

	cache.Put(context.Background(), "models.Article", cfg)

	got, ok := cache.Get(context.Background(), "models.Article")
	if !ok {
		t.Fatal("expected cached configuration")
	}
	assert.Equal(t, cfg, got)
}

func TestCache_EmptyConfigurationNeverCached(t *testing.T) {
	store := NewMemoryStore()
	cache := NewCache(store, nil)

	cache.Put(context.Background(), "models.Plain", &Configuration{})
	cache.Put(context.Background(), "models.Nil", nil)

	_, ok := cache.Get(context.Background(), "models.Plain")
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), "models.Nil")
	assert.False(t, ok)
}

func TestCache_DurableBackendRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	cfg := &Configuration{
		Update: []string{"UpdatedAt"},
		Change: []ChangeRule{{Field: "ArchivedAt", TrackedField: "Status", WatchedValue: "archived"}},
	}

	writer := NewCache(store, nil)
	writer.Put(context.Background(), "models.Article", cfg)

	// 新进程视角：本地 memo 为空，从持久化后端回源
	reader := NewCache(store, nil)
	got, ok := reader.Get(context.Background(), "models.Article")
	if !ok {
		t.Fatal("expected durable cache hit")
	}
	assert.Equal(t, cfg.Update, got.Update)
	assert.Equal(t, "ArchivedAt", got.Change[0].Field)
	assert.Equal(t, "archived", got.Change[0].WatchedValue)

	// 回源后应已回填本地 memo 表
	again, ok := reader.Get(context.Background(), "models.Article")
	assert.True(t, ok)
	assert.Same(t, got, again)
}

func TestCache_StoreKeyFormat(t *testing.T) {
	store := NewMemoryStore()
	cache := NewCache(store, nil)
	cache.Put(context.Background(), "models.Article", &Configuration{Create: []string{"CreatedAt"}})

	_, found, err := store.Fetch(context.Background(), "models.Article$STAMP_CLASSMETADATA")
	assert.NoError(t, err)
	assert.True(t, found)
}

func TestCache_BackendFailureDegradesToMiss(t *testing.T) {
	cache := NewCache(failingStore{}, nil)

	// 写失败被吞掉，本地 memo 仍然生效
	cfg := &Configuration{Create: []string{"CreatedAt"}}
	cache.Put(context.Background(), "models.Article", cfg)

	got, ok := cache.Get(context.Background(), "models.Article")
	assert.True(t, ok)
	assert.Equal(t, cfg, got)

	// 未知类读失败按未命中处理
	_, ok = cache.Get(context.Background(), "models.Other")
	assert.False(t, ok)
}
