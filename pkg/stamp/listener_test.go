package stamp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// 文章类：CreatedAt=create, UpdatedAt=update, ArchivedAt=change(Status=archived)
func newArticleListener(t *testing.T) (*Listener, *fakeSource) {
	t.Helper()
	source := newFakeSource(articleMetadata())
	listener := NewListener(source, nil, nil)
	if err := listener.ClassMetadataLoaded(context.Background(), source.metas["models.Article"]); err != nil {
		t.Fatalf("metadata load failed: %v", err)
	}
	return listener, source
}

func TestListener_PreInsertStampsCreateAndUpdate(t *testing.T) {
	listener, _ := newArticleListener(t)

	begin := time.Now()
	article := newFakeEntity("models.Article")
	if err := listener.PreInsert(context.Background(), article); err != nil {
		t.Fatalf("PreInsert failed: %v", err)
	}
	end := time.Now()

	for _, field := range []string{"CreatedAt", "UpdatedAt"} {
		stamped, ok := article.values[field].(time.Time)
		if !ok {
			t.Fatalf("%s not stamped", field)
		}
		if stamped.Before(begin) || stamped.After(end) {
			t.Fatalf("%s stamped outside hook window: %v", field, stamped)
		}
	}
	assert.Nil(t, article.values["ArchivedAt"])
}

func TestListener_PreInsertNoConfigurationNoOp(t *testing.T) {
	source := newFakeSource(&fakeMetadata{
		name:   "models.Plain",
		fields: map[string]FieldType{"Title": ""},
		props:  []string{"Title"},
	})
	listener := NewListener(source, nil, nil)
	if err := listener.ClassMetadataLoaded(context.Background(), source.metas["models.Plain"]); err != nil {
		t.Fatalf("metadata load failed: %v", err)
	}

	entity := newFakeEntity("models.Plain")
	if err := listener.PreInsert(context.Background(), entity); err != nil {
		t.Fatalf("PreInsert failed: %v", err)
	}
	assert.Empty(t, entity.values)
}

func TestListener_PreFlushStampsUpdateUnconditionally(t *testing.T) {
	listener, _ := newArticleListener(t)
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	listener.SetClock(fixedClock(now))

	article := newFakeEntity("models.Article")
	uow := &fakeUnitOfWork{
		updates: []interface{}{article},
		changes: map[interface{}]ChangeSet{
			// 变更集不含任何 update 字段，仍然要盖章
			article: {"Title": {Old: "a", New: "b"}},
		},
	}

	if err := listener.PreFlush(context.Background(), uow); err != nil {
		t.Fatalf("PreFlush failed: %v", err)
	}

	assert.Equal(t, now, article.values["UpdatedAt"])
	assert.Nil(t, article.values["CreatedAt"], "create fields are never stamped on flush")
	assert.Equal(t, []interface{}{article}, uow.recomputed)
}

func TestListener_PreFlushChangeRule(t *testing.T) {
	listener, _ := newArticleListener(t)
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	listener.SetClock(fixedClock(now))

	archived := newFakeEntity("models.Article")
	published := newFakeEntity("models.Article")
	uow := &fakeUnitOfWork{
		updates: []interface{}{archived, published},
		changes: map[interface{}]ChangeSet{
			archived:  {"Status": {Old: "draft", New: "archived"}},
			published: {"Status": {Old: "draft", New: "published"}},
		},
	}

	if err := listener.PreFlush(context.Background(), uow); err != nil {
		t.Fatalf("PreFlush failed: %v", err)
	}

	assert.Equal(t, now, archived.values["ArchivedAt"])
	assert.Nil(t, published.values["ArchivedAt"])
	// update 字段无条件盖章，两个实例都要求重算变更集
	assert.Len(t, uow.recomputed, 2)
}

func TestListener_PreFlushSkipsUnknownInstances(t *testing.T) {
	listener, _ := newArticleListener(t)

	uow := &fakeUnitOfWork{updates: []interface{}{"not-an-entity"}}
	if err := listener.PreFlush(context.Background(), uow); err != nil {
		t.Fatalf("PreFlush failed: %v", err)
	}
	assert.Empty(t, uow.recomputed)
}

func TestListener_PreFlushObjectExpectedAbortsCommit(t *testing.T) {
	meta := &fakeMetadata{
		name:   "models.Ticket",
		fields: map[string]FieldType{"EscalatedAt": FieldTypeDateTime},
		props:  []string{"EscalatedAt"},
		anns: map[string]*Annotation{
			"EscalatedAt": {On: TriggerChange, Field: "Assignee.Role", Value: "supervisor"},
		},
	}
	source := newFakeSource(meta)
	listener := NewListener(source, nil, nil)
	if err := listener.ClassMetadataLoaded(context.Background(), meta); err != nil {
		t.Fatalf("metadata load failed: %v", err)
	}

	ticket := newFakeEntity("models.Ticket")
	uow := &fakeUnitOfWork{
		updates: []interface{}{ticket},
		changes: map[interface{}]ChangeSet{
			ticket: {"Assignee": {New: 42}},
		},
	}

	err := listener.PreFlush(context.Background(), uow)
	assert.ErrorIs(t, err, ErrObjectExpected)
}

func TestListener_InheritanceMergesBaseFirst(t *testing.T) {
	base := &fakeMetadata{
		name:   "models.Base",
		fields: map[string]FieldType{"CreatedAt": FieldTypeDateTime},
		props:  []string{"CreatedAt"},
		anns:   map[string]*Annotation{"CreatedAt": {On: TriggerCreate}},
	}
	child := &fakeMetadata{
		name:      "models.Child",
		fields:    map[string]FieldType{"CreatedAt": FieldTypeDateTime, "UpdatedAt": FieldTypeDateTime},
		props:     []string{"UpdatedAt"},
		anns:      map[string]*Annotation{"UpdatedAt": {On: TriggerUpdate}},
		ancestors: []string{"models.Base"},
	}
	source := newFakeSource(base, child)
	listener := NewListener(source, nil, nil)

	if err := listener.ClassMetadataLoaded(context.Background(), base); err != nil {
		t.Fatalf("base load failed: %v", err)
	}
	if err := listener.ClassMetadataLoaded(context.Background(), child); err != nil {
		t.Fatalf("child load failed: %v", err)
	}

	baseCfg, ok := listener.Cache().Get(context.Background(), "models.Base")
	if !ok {
		t.Fatal("expected base configuration")
	}
	assert.Equal(t, &Configuration{Create: []string{"CreatedAt"}}, baseCfg)

	childCfg, ok := listener.Cache().Get(context.Background(), "models.Child")
	if !ok {
		t.Fatal("expected child configuration")
	}
	assert.Equal(t, &Configuration{Create: []string{"CreatedAt"}, Update: []string{"UpdatedAt"}}, childCfg)
}

func TestListener_UnmappedAncestorSkipped(t *testing.T) {
	child := &fakeMetadata{
		name:      "models.Child",
		fields:    map[string]FieldType{"UpdatedAt": FieldTypeDateTime},
		props:     []string{"UpdatedAt"},
		anns:      map[string]*Annotation{"UpdatedAt": {On: TriggerUpdate}},
		ancestors: []string{"models.NotMapped"},
	}
	source := newFakeSource(child)
	listener := NewListener(source, nil, nil)

	if err := listener.ClassMetadataLoaded(context.Background(), child); err != nil {
		t.Fatalf("child load failed: %v", err)
	}

	cfg, ok := listener.Cache().Get(context.Background(), "models.Child")
	if !ok {
		t.Fatal("expected configuration")
	}
	assert.Equal(t, []string{"UpdatedAt"}, cfg.Update)
}

func TestListener_MappedSuperclassLoadNoOp(t *testing.T) {
	meta := articleMetadata()
	meta.superclass = true
	source := newFakeSource(meta)
	listener := NewListener(source, nil, nil)

	if err := listener.ClassMetadataLoaded(context.Background(), meta); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	_, ok := listener.Cache().Get(context.Background(), meta.name)
	assert.False(t, ok)
}

func TestListener_InvalidConfigurationNothingCached(t *testing.T) {
	meta := &fakeMetadata{
		name:   "models.Broken",
		fields: map[string]FieldType{"Title": "", "CreatedAt": FieldTypeDateTime},
		props:  []string{"CreatedAt", "Title"},
		anns: map[string]*Annotation{
			"CreatedAt": {On: TriggerCreate},
			"Title":     {On: TriggerCreate},
		},
	}
	source := newFakeSource(meta)
	listener := NewListener(source, nil, nil)

	err := listener.ClassMetadataLoaded(context.Background(), meta)
	assert.ErrorIs(t, err, ErrInvalidFieldType)

	_, ok := listener.Cache().Get(context.Background(), "models.Broken")
	assert.False(t, ok)
}

func TestListener_ReloadProducesIdenticalConfiguration(t *testing.T) {
	meta := articleMetadata()
	source := newFakeSource(meta)
	listener := NewListener(source, nil, nil)

	if err := listener.ClassMetadataLoaded(context.Background(), meta); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	first, _ := listener.Cache().Get(context.Background(), meta.name)

	// 宿主重复发出加载事件
	if err := listener.ClassMetadataLoaded(context.Background(), meta); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	second, _ := listener.Cache().Get(context.Background(), meta.name)

	assert.Equal(t, first, second)
}
