package gormstamp

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm/schema"

	"stampable/pkg/stamp"
)

// TagKey 触发器声明使用的结构体标签键。
// 语法与 gorm 标签一致：`stamp:"on:create"`、
// `stamp:"on:change;track:Status;value:archived"`。
const TagKey = "stamp"

// schemaSource 基于 GORM schema 解析的元数据工厂。
// 类名到元数据的注册表在模型首次解析时填充，
// 匿名内嵌结构体作为祖先类一并注册。
type schemaSource struct {
	namer      schema.Namer
	cacheStore *sync.Map

	mu     sync.RWMutex
	byName map[string]*classMetadata
}

func newSchemaSource(namer schema.Namer) *schemaSource {
	return &schemaSource{
		namer:      namer,
		cacheStore: &sync.Map{},
		byName:     make(map[string]*classMetadata),
	}
}

func (s *schemaSource) MetadataFor(class string) (stamp.ClassMetadata, bool) {
	s.mu.RLock()
	meta, ok := s.byName[class]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return meta, true
}

func (s *schemaSource) MetadataOf(instance interface{}) (stamp.ClassMetadata, bool) {
	t := derefType(reflect.TypeOf(instance))
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	meta, err := s.metadataForType(t)
	if err != nil {
		return nil, false
	}
	return meta, true
}

// metadataForType 解析并注册一个模型类型及其全部祖先
func (s *schemaSource) metadataForType(t reflect.Type) (*classMetadata, error) {
	t = derefType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct type", stamp.ErrUnsupportedHost, t)
	}

	name := qualifiedName(t)
	s.mu.RLock()
	meta, ok := s.byName[name]
	s.mu.RUnlock()
	if ok {
		return meta, nil
	}

	sch, err := schema.Parse(reflect.New(t).Interface(), s.cacheStore, s.namer)
	if err != nil {
		return nil, err
	}

	meta = &classMetadata{
		name:      name,
		schema:    sch,
		ancestors: ancestorNames(t),
	}
	s.mu.Lock()
	s.byName[name] = meta
	s.mu.Unlock()

	// 祖先类各自注册，解析不了的按未映射处理
	for _, ancestor := range embeddedTypes(t) {
		_, _ = s.metadataForType(ancestor)
	}
	return meta, nil
}

// classMetadata stamp.ClassMetadata 在 GORM schema 上的实现
type classMetadata struct {
	name      string
	schema    *schema.Schema
	ancestors []string
}

func (m *classMetadata) Name() string { return m.name }

// IsMappedSuperclass GORM 没有映射父类概念，内嵌基类按普通祖先处理
func (m *classMetadata) IsMappedSuperclass() bool { return false }

func (m *classMetadata) HasField(name string) bool {
	f := m.schema.LookUpField(name)
	return f != nil && f.DBName != ""
}

func (m *classMetadata) FieldType(name string) stamp.FieldType {
	f := m.schema.LookUpField(name)
	if f == nil {
		return ""
	}
	return fieldTypeTag(f)
}

func (m *classMetadata) Ancestors() []string { return m.ancestors }

// Properties 本类自身声明的字段（内嵌结构体提升上来的字段不算）
func (m *classMetadata) Properties() []string {
	var props []string
	for _, f := range m.schema.Fields {
		if len(f.BindNames) == 1 {
			props = append(props, f.Name)
		}
	}
	return props
}

func (m *classMetadata) Annotation(property string) (*stamp.Annotation, bool) {
	f := m.schema.LookUpField(property)
	if f == nil {
		return nil, false
	}
	raw, ok := f.Tag.Lookup(TagKey)
	if !ok || raw == "" {
		return nil, false
	}

	settings := schema.ParseTagSetting(raw, ";")
	ann := &stamp.Annotation{On: strings.ToLower(settings["ON"])}
	if v, ok := settings["TRACK"]; ok {
		ann.Field = v
	}
	if v, ok := settings["VALUE"]; ok {
		ann.Value = v
	}
	return ann, true
}

func (m *classMetadata) Accessor(field string) stamp.FieldAccessor {
	return fieldAccessor{field: m.schema.LookUpField(field)}
}

// fieldAccessor schema.Field 上的读写访问器
type fieldAccessor struct {
	field *schema.Field
}

func (a fieldAccessor) Get(instance interface{}) interface{} {
	if a.field == nil {
		return nil
	}
	v, _ := a.field.ValueOf(context.Background(), reflect.Indirect(reflect.ValueOf(instance)))
	return v
}

func (a fieldAccessor) Set(instance interface{}, value interface{}) error {
	if a.field == nil {
		return fmt.Errorf("unknown field")
	}
	return a.field.Set(context.Background(), reflect.Indirect(reflect.ValueOf(instance)), value)
}

// fieldTypeTag 把 GORM 字段类型映射为时间类型标签
func fieldTypeTag(f *schema.Field) stamp.FieldType {
	switch strings.ToLower(string(f.DataType)) {
	case "date":
		return stamp.FieldTypeDate
	case "datetime", "timestamp", "timestamptz":
		return stamp.FieldTypeDateTime
	case "time":
		// Go 的 time.Time 字段 DataType 也是 "time"，按 datetime 处理；
		// 只有列类型显式声明为 time 的非 time.Time 字段才算时刻类型
		if isTimeGoType(f.FieldType) {
			return stamp.FieldTypeDateTime
		}
		return stamp.FieldTypeTime
	}
	return ""
}

func isTimeGoType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t == reflect.TypeOf(time.Time{})
}

func derefType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// qualifiedName 完全限定类名：包路径 + 类型名
func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// embeddedTypes 类型自身的匿名内嵌结构体，按声明顺序
func embeddedTypes(t reflect.Type) []reflect.Type {
	var types []reflect.Type
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		et := derefType(f.Type)
		if et.Kind() == reflect.Struct {
			types = append(types, et)
		}
	}
	return types
}

// ancestorNames 祖先类名，最基类在前：先递归祖先的祖先，再记祖先本身
func ancestorNames(t reflect.Type) []string {
	var names []string
	for _, et := range embeddedTypes(t) {
		names = append(names, ancestorNames(et)...)
		names = append(names, qualifiedName(et))
	}
	return names
}
