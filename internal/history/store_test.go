package history

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	album := Album{
		ID:        "album-1",
		SessionID: "session-a",
		CreatedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		SlotCount: 4,
		Path:      "/tmp/albums/album-1.png",
	}
	if err := store.Record(ctx, album); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "album-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SessionID != album.SessionID || got.SlotCount != album.SlotCount || got.Path != album.Path {
		t.Errorf("Get = %+v, want %+v", got, album)
	}
	if !got.CreatedAt.Equal(album.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, album.CreatedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.Record(ctx, Album{
			ID:        "album-" + string(rune('a'+i)),
			SessionID: "session-a",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			SlotCount: i + 1,
			Path:      "/tmp/x.png",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	// A different session's album must not appear.
	if err := store.Record(ctx, Album{
		ID: "other", SessionID: "session-b", CreatedAt: base, SlotCount: 1, Path: "/tmp/y.png",
	}); err != nil {
		t.Fatal(err)
	}

	albums, err := store.List(ctx, "session-a")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(albums) != 3 {
		t.Fatalf("List returned %d albums, want 3", len(albums))
	}
	if albums[0].ID != "album-c" {
		t.Errorf("first album = %s, want newest (album-c)", albums[0].ID)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	album := Album{ID: "dup", SessionID: "s", CreatedAt: time.Now(), SlotCount: 1, Path: "/tmp/z.png"}
	if err := store.Record(ctx, album); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, album); err == nil {
		t.Error("expected primary key violation on duplicate ID")
	}
}
