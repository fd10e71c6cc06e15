package gormstamp

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfigCacheEntry 持久化配置缓存的存储模型
type ConfigCacheEntry struct {
	Key       string     `gorm:"primaryKey;size:255"`
	Value     []byte
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 固定表名
func (ConfigCacheEntry) TableName() string { return "stamp_configurations" }

// DBStore 把解析好的触发器配置持久化到数据库表，
// 跨进程复用，省去每次启动重扫注解
type DBStore struct {
	db *gorm.DB
}

// NewDBStore 创建存储并建表
func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&ConfigCacheEntry{}); err != nil {
		return nil, err
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	var entry ConfigCacheEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.ExpiresAt != nil && time.Now().After(*entry.ExpiresAt) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *DBStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := ConfigCacheEntry{Key: key, Value: value}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		entry.ExpiresAt = &expires
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}
