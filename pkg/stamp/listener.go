package stamp

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Listener 宿主引擎生命周期钩子的入口。
// 三个钩子都是宿主提交管线内的同步回调，自身不做任何 I/O
// （持久化缓存读写除外）。
type Listener struct {
	source MetadataSource
	cache  *Cache
	logger *logrus.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewListener 创建监听器
func NewListener(source MetadataSource, cache *Cache, logger *logrus.Logger) *Listener {
	if logger == nil {
		logger = logrus.New()
	}
	if cache == nil {
		cache = NewCache(nil, logger)
	}

	return &Listener{
		source: source,
		cache:  cache,
		logger: logger,
		tracer: otel.Tracer("stampable.listener"),
		now:    time.Now,
	}
}

// SetClock 替换时间源，测试用
func (l *Listener) SetClock(now func() time.Time) {
	l.now = now
}

// Cache 返回监听器使用的配置缓存
func (l *Listener) Cache() *Cache {
	return l.cache
}

// ClassMetadataLoaded 类元数据加载钩子。按最基类在前的顺序扫描
// 祖先类再扫描本类，非空配置写入缓存。映射父类不产出自身配置。
// 扫描错误使该类的加载失败。
func (l *Listener) ClassMetadataLoaded(ctx context.Context, meta ClassMetadata) error {
	if meta.IsMappedSuperclass() {
		return nil
	}

	cfg := &Configuration{}
	for _, ancestor := range meta.Ancestors() {
		ancestorMeta, ok := l.source.MetadataFor(ancestor)
		if !ok {
			// 未映射的祖先类跳过
			continue
		}
		if err := ReadAnnotations(ancestorMeta, cfg); err != nil {
			return err
		}
	}
	if err := ReadAnnotations(meta, cfg); err != nil {
		return err
	}

	if !cfg.Empty() {
		l.cache.Put(ctx, meta.Name(), cfg)
		l.logger.Debugf("stamp: resolved configuration for %s: create=%d update=%d change=%d",
			meta.Name(), len(cfg.Create), len(cfg.Update), len(cfg.Change))
	}
	return nil
}

// PreInsert 首次持久化前的钩子：create 和 update 两组字段都盖当前时间
func (l *Listener) PreInsert(ctx context.Context, instance interface{}) error {
	meta, ok := l.source.MetadataOf(instance)
	if !ok {
		return nil
	}
	cfg, ok := l.cache.Get(ctx, meta.Name())
	if !ok {
		return nil
	}

	now := l.now()
	for _, field := range cfg.Update {
		if err := l.setField(meta, instance, field, now); err != nil {
			return err
		}
	}
	for _, field := range cfg.Create {
		if err := l.setField(meta, instance, field, now); err != nil {
			return err
		}
	}
	return nil
}

// PreFlush 提交前的钩子，处理宿主已调度为修改的全部实例。
// update 字段无条件盖章，change 规则按变更集求值，
// 任何改写都要求宿主重算该实例的变更集，保证盖章随本次提交落库。
func (l *Listener) PreFlush(ctx context.Context, uow UnitOfWork) error {
	ctx, span := l.tracer.Start(ctx, "stamp.preflush")
	defer span.End()

	stamped := 0
	for _, instance := range uow.ScheduledUpdates() {
		meta, ok := l.source.MetadataOf(instance)
		if !ok {
			continue
		}
		cfg, ok := l.cache.Get(ctx, meta.Name())
		if !ok {
			continue
		}

		cs := uow.ChangeSet(instance)
		now := l.now()
		needsChange := false

		for _, field := range cfg.Update {
			if err := l.setField(meta, instance, field, now); err != nil {
				return err
			}
			needsChange = true
		}

		for _, rule := range cfg.Change {
			matched, err := Evaluate(rule, cs, l.source)
			if err != nil {
				return err
			}
			if matched {
				if err := l.setField(meta, instance, rule.Field, now); err != nil {
					return err
				}
				needsChange = true
			}
		}

		if needsChange {
			uow.RecomputeChangeSet(meta, instance)
			stamped++
		}
	}

	span.SetAttributes(attribute.Int("stamp.instances", stamped))
	return nil
}

func (l *Listener) setField(meta ClassMetadata, instance interface{}, field string, now time.Time) error {
	if err := meta.Accessor(field).Set(instance, now); err != nil {
		return fmt.Errorf("stamp: set %s.%s: %w", meta.Name(), field, err)
	}
	return nil
}
