package stamp

import (
	"context"
	"time"
)

// FieldType 宿主引擎为字段声明的存储类型标签
type FieldType string

const (
	FieldTypeDate     FieldType = "date"
	FieldTypeTime     FieldType = "time"
	FieldTypeDateTime FieldType = "datetime"
)

// Annotation 字段上的触发器声明
// On 为触发类型（create / update / change），
// Field 和 Value 仅在 change 触发器上出现
type Annotation struct {
	On    string
	Field string
	Value interface{}
}

// FieldAccessor 宿主引擎提供的字段读写能力
type FieldAccessor interface {
	Get(instance interface{}) interface{}
	Set(instance interface{}, value interface{}) error
}

// ClassMetadata 宿主引擎的类元数据视图
type ClassMetadata interface {
	// Name 返回完全限定类名
	Name() string

	// IsMappedSuperclass 该元数据是否为抽象映射父类
	IsMappedSuperclass() bool

	// HasField 字段是否由宿主引擎映射
	HasField(name string) bool

	// FieldType 返回字段的类型标签，非时间类型字段返回空串
	FieldType(name string) FieldType

	// Ancestors 祖先类名序列，最基类在前
	Ancestors() []string

	// Properties 本类自身声明的属性（不含继承属性），按声明顺序
	Properties() []string

	// Annotation 读取属性上的触发器声明
	Annotation(property string) (*Annotation, bool)

	// Accessor 返回字段访问器
	Accessor(field string) FieldAccessor
}

// MetadataSource 宿主引擎的元数据工厂
type MetadataSource interface {
	// MetadataFor 按类名取元数据，未映射的类返回 false
	MetadataFor(class string) (ClassMetadata, bool)

	// MetadataOf 按实例取元数据
	MetadataOf(instance interface{}) (ClassMetadata, bool)
}

// Change 一个字段在本次提交中的新旧值
type Change struct {
	Old interface{}
	New interface{}
}

// ChangeSet 宿主引擎为单个实例计算的变更集
type ChangeSet map[string]Change

// UnitOfWork 宿主引擎提交管线的工作单元视图
type UnitOfWork interface {
	// ScheduledUpdates 本次提交中已调度为修改的实例
	ScheduledUpdates() []interface{}

	// ChangeSet 实例的待提交变更集
	ChangeSet(instance interface{}) ChangeSet

	// RecomputeChangeSet 在钩子改写字段后重算实例变更集，
	// 保证盖章字段随同一次提交落库
	RecomputeChangeSet(meta ClassMetadata, instance interface{})
}

// Store 可选的持久化配置缓存后端
// 读写失败按缓存未命中处理，不会影响提交
type Store interface {
	Fetch(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
