package gormstamp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newStoreTestDB(t *testing.T) *DBStore {
	t.Helper()
	dsn := "file:gormstamp_store_" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewDBStore(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestDBStore_FetchMiss(t *testing.T) {
	store := newStoreTestDB(t)

	_, found, err := store.Fetch(context.Background(), "models.Unknown$STAMP_CLASSMETADATA")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestDBStore_SaveFetchRoundTrip(t *testing.T) {
	store := newStoreTestDB(t)
	ctx := context.Background()

	if err := store.Save(ctx, "models.Article$STAMP_CLASSMETADATA", []byte(`{"create":["CreatedAt"]}`), 0); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, found, err := store.Fetch(ctx, "models.Article$STAMP_CLASSMETADATA")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"create":["CreatedAt"]}`, string(raw))
}

func TestDBStore_SaveOverwritesExistingEntry(t *testing.T) {
	store := newStoreTestDB(t)
	ctx := context.Background()

	if err := store.Save(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, "k", []byte("v2"), 0); err != nil {
		t.Fatalf("second save: %v", err)
	}

	raw, found, err := store.Fetch(ctx, "k")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v2"), raw)
}

func TestDBStore_ExpiredEntryIsAMiss(t *testing.T) {
	store := newStoreTestDB(t)
	ctx := context.Background()

	if err := store.Save(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	_, found, err := store.Fetch(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, found)
}
