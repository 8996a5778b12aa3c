package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/felixgeelhaar/recall/internal/memory"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New("redis://"+mr.Addr(), "test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestStore_AddList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, m := range []string{"likes jazz", "has two cats", "likes jazz"} {
		if _, err := s.AddMemory(ctx, m); err != nil {
			t.Fatalf("AddMemory failed: %v", err)
		}
	}

	items, err := s.ListMemories(ctx)
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 memories, got %d", len(items))
	}
	if items[0].Content != "likes jazz" || items[1].Content != "has two cats" {
		t.Errorf("unexpected order: %v", memory.Contents(items))
	}
	if items[0].ID == items[2].ID {
		t.Error("duplicate content should get distinct IDs")
	}
}

func TestStore_RejectsBlank(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.AddMemory(context.Background(), "  "); !errors.Is(err, memory.ErrEmptyMemory) {
		t.Errorf("expected ErrEmptyMemory, got %v", err)
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	a, _ := s.AddMemory(ctx, "first")
	s.AddMemory(ctx, "second")

	if err := s.DeleteMemory(ctx, a.ID); err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}
	items, _ := s.ListMemories(ctx)
	if len(items) != 1 || items[0].Content != "second" {
		t.Errorf("unexpected memories after delete: %v", memory.Contents(items))
	}

	if err := s.DeleteMemory(ctx, "missing"); !errors.Is(err, memory.ErrMemoryNotFound) {
		t.Errorf("expected ErrMemoryNotFound, got %v", err)
	}

	if err := s.ClearMemories(ctx); err != nil {
		t.Fatalf("ClearMemories failed: %v", err)
	}
	if mr.Exists("test:memories") {
		t.Error("expected key to be removed")
	}
}

func TestStore_SkipsForeignEntries(t *testing.T) {
	s, mr := newTestStore(t)
	mr.RPush("test:memories", "not json")
	s.AddMemory(context.Background(), "valid")

	items, err := s.ListMemories(context.Background())
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected foreign entry to be skipped, got %d items", len(items))
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New("not a url", ""); err == nil {
		t.Error("expected error for invalid URL")
	}
}
