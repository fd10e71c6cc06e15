package gormstamp

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stampable/pkg/stamp"
)

const pluginName = "stampable"

// Plugin 把 stamp 引擎接到 GORM 的回调管线上：
// gorm:create 之前跑 pre-insert 钩子，gorm:update 之前跑 pre-flush 钩子。
type Plugin struct {
	store  stamp.Store
	logger *logrus.Logger
	clock  func() time.Time

	source   *schemaSource
	listener *stamp.Listener
	loaded   sync.Map // 类名 -> 已触发元数据加载
}

// Option 插件选项
type Option func(*Plugin)

// WithStore 启用持久化配置缓存后端
func WithStore(store stamp.Store) Option {
	return func(p *Plugin) { p.store = store }
}

// WithLogger 指定日志器
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Plugin) { p.logger = logger }
}

// WithClock 替换时间源，测试用
func WithClock(clock func() time.Time) Option {
	return func(p *Plugin) { p.clock = clock }
}

// New 创建插件，交给 db.Use 注册
func New(opts ...Option) *Plugin {
	p := &Plugin{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	return p
}

func (p *Plugin) Name() string { return pluginName }

// Initialize 注册生命周期回调。注册失败说明宿主版本不兼容。
func (p *Plugin) Initialize(db *gorm.DB) error {
	p.source = newSchemaSource(db.Config.NamingStrategy)
	p.listener = stamp.NewListener(p.source, stamp.NewCache(p.store, p.logger), p.logger)
	if p.clock != nil {
		p.listener.SetClock(p.clock)
	}

	if err := db.Callback().Create().Before("gorm:create").
		Register("stampable:before_create", p.beforeCreate); err != nil {
		return fmt.Errorf("%w: %v", stamp.ErrUnsupportedHost, err)
	}
	if err := db.Callback().Update().Before("gorm:update").
		Register("stampable:before_update", p.beforeUpdate); err != nil {
		return fmt.Errorf("%w: %v", stamp.ErrUnsupportedHost, err)
	}
	return nil
}

// ensureLoaded 模型首次出现在语句中时触发一次类元数据加载。
// 扫描失败不记为已加载，该类的每次使用都会报同样的配置错误。
func (p *Plugin) ensureLoaded(stmt *gorm.Statement) error {
	t := derefType(stmt.Schema.ModelType)
	name := qualifiedName(t)
	if _, done := p.loaded.Load(name); done {
		return nil
	}

	meta, err := p.source.metadataForType(t)
	if err != nil {
		return err
	}
	if err := p.listener.ClassMetadataLoaded(stmt.Context, meta); err != nil {
		return err
	}
	p.loaded.Store(name, struct{}{})
	return nil
}

func (p *Plugin) beforeCreate(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Schema == nil {
		return
	}
	if err := p.ensureLoaded(stmt); err != nil {
		_ = db.AddError(err)
		return
	}

	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			rv := reflect.Indirect(stmt.ReflectValue.Index(i))
			if rv.Kind() != reflect.Struct || !rv.CanAddr() {
				continue
			}
			if err := p.listener.PreInsert(stmt.Context, rv.Addr().Interface()); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if !stmt.ReflectValue.CanAddr() {
			return
		}
		if err := p.listener.PreInsert(stmt.Context, stmt.ReflectValue.Addr().Interface()); err != nil {
			_ = db.AddError(err)
		}
	}
}

func (p *Plugin) beforeUpdate(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Schema == nil {
		return
	}
	if err := p.ensureLoaded(stmt); err != nil {
		_ = db.AddError(err)
		return
	}

	rv := stmt.ReflectValue
	if rv.Kind() != reflect.Struct || !rv.CanAddr() {
		return
	}

	uow := &statementUnitOfWork{stmt: stmt, instance: rv.Addr().Interface()}
	if err := p.listener.PreFlush(stmt.Context, uow); err != nil {
		_ = db.AddError(err)
	}
}

// statementUnitOfWork 把单条 UPDATE 语句适配成工作单元视图。
// 变更集从 Statement.Dest 推导；构建变更集时对实例字段值拍快照，
// 重算变更集即是把快照之后被改写的字段通过 SetColumn 并入本条语句。
type statementUnitOfWork struct {
	stmt     *gorm.Statement
	instance interface{}
	snapshot map[string]interface{}
}

func (u *statementUnitOfWork) ScheduledUpdates() []interface{} {
	return []interface{}{u.instance}
}

func (u *statementUnitOfWork) ChangeSet(interface{}) stamp.ChangeSet {
	u.takeSnapshot()

	cs := stamp.ChangeSet{}
	sch := u.stmt.Schema
	rv := u.stmt.ReflectValue

	switch dest := u.stmt.Dest.(type) {
	case map[string]interface{}:
		for k, v := range dest {
			f := sch.LookUpField(k)
			if f == nil {
				continue
			}
			old, _ := f.ValueOf(u.stmt.Context, rv)
			cs[f.Name] = stamp.Change{Old: old, New: v}
		}
	default:
		destRV := reflect.Indirect(reflect.ValueOf(u.stmt.Dest))
		if destRV.Kind() != reflect.Struct {
			return cs
		}
		// 结构体 dest 只有非零字段参与更新
		for _, f := range sch.Fields {
			v, zero := f.ValueOf(u.stmt.Context, destRV)
			if zero {
				continue
			}
			old, _ := f.ValueOf(u.stmt.Context, rv)
			cs[f.Name] = stamp.Change{Old: old, New: v}
		}
	}
	return cs
}

func (u *statementUnitOfWork) RecomputeChangeSet(_ stamp.ClassMetadata, _ interface{}) {
	if u.snapshot == nil {
		return
	}
	rv := u.stmt.ReflectValue
	for _, f := range u.stmt.Schema.Fields {
		if f.DBName == "" {
			continue
		}
		v, _ := f.ValueOf(u.stmt.Context, rv)
		if !reflect.DeepEqual(v, u.snapshot[f.Name]) {
			u.stmt.SetColumn(f.Name, v, true)
		}
	}
}

func (u *statementUnitOfWork) takeSnapshot() {
	if u.snapshot != nil {
		return
	}
	u.snapshot = make(map[string]interface{})
	rv := u.stmt.ReflectValue
	for _, f := range u.stmt.Schema.Fields {
		if f.DBName == "" {
			continue
		}
		v, _ := f.ValueOf(u.stmt.Context, rv)
		u.snapshot[f.Name] = v
	}
}
