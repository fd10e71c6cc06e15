package stamp

// 测试用的假宿主引擎：map 支撑的实例、元数据工厂和工作单元

type fakeEntity struct {
	class  string
	values map[string]interface{}
}

func newFakeEntity(class string) *fakeEntity {
	return &fakeEntity{class: class, values: make(map[string]interface{})}
}

type fakeAccessor struct {
	field string
}

func (a fakeAccessor) Get(instance interface{}) interface{} {
	return instance.(*fakeEntity).values[a.field]
}

func (a fakeAccessor) Set(instance interface{}, value interface{}) error {
	instance.(*fakeEntity).values[a.field] = value
	return nil
}

type fakeMetadata struct {
	name       string
	superclass bool
	fields     map[string]FieldType // 映射字段及其类型标签，"" 表示非时间类型
	props      []string
	anns       map[string]*Annotation
	ancestors  []string
}

func (m *fakeMetadata) Name() string             { return m.name }
func (m *fakeMetadata) IsMappedSuperclass() bool { return m.superclass }

func (m *fakeMetadata) HasField(name string) bool {
	_, ok := m.fields[name]
	return ok
}

func (m *fakeMetadata) FieldType(name string) FieldType {
	return m.fields[name]
}

func (m *fakeMetadata) Ancestors() []string  { return m.ancestors }
func (m *fakeMetadata) Properties() []string { return m.props }

func (m *fakeMetadata) Annotation(property string) (*Annotation, bool) {
	ann, ok := m.anns[property]
	return ann, ok
}

func (m *fakeMetadata) Accessor(field string) FieldAccessor {
	return fakeAccessor{field: field}
}

type fakeSource struct {
	metas map[string]*fakeMetadata
}

func newFakeSource(metas ...*fakeMetadata) *fakeSource {
	s := &fakeSource{metas: make(map[string]*fakeMetadata)}
	for _, m := range metas {
		s.metas[m.name] = m
	}
	return s
}

func (s *fakeSource) MetadataFor(class string) (ClassMetadata, bool) {
	m, ok := s.metas[class]
	return m, ok
}

func (s *fakeSource) MetadataOf(instance interface{}) (ClassMetadata, bool) {
	e, ok := instance.(*fakeEntity)
	if !ok {
		return nil, false
	}
	return s.MetadataFor(e.class)
}

type fakeUnitOfWork struct {
	updates    []interface{}
	changes    map[interface{}]ChangeSet
	recomputed []interface{}
}

func (u *fakeUnitOfWork) ScheduledUpdates() []interface{} { return u.updates }

func (u *fakeUnitOfWork) ChangeSet(instance interface{}) ChangeSet {
	return u.changes[instance]
}

func (u *fakeUnitOfWork) RecomputeChangeSet(_ ClassMetadata, instance interface{}) {
	u.recomputed = append(u.recomputed, instance)
}
