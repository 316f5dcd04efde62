package store

import (
	"context"
	"testing"
)

func TestMemoryStoreMergeUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if ok := s.UpdateStatus(ctx, "u1", "f1", "images", Fields{"status": "processing", "generated": false}); !ok {
		t.Fatalf("UpdateStatus returned false")
	}
	if ok := s.UpdateStatus(ctx, "u1", "f1", "images", Fields{"status": "completed"}); !ok {
		t.Fatalf("UpdateStatus returned false")
	}

	doc, ok := s.Get(ctx, "u1", "f1", "images")
	if !ok {
		t.Fatalf("document missing after writes")
	}
	if doc["status"] != "completed" {
		t.Fatalf("status = %v, want completed (last write wins)", doc["status"])
	}
	if doc["generated"] != false {
		t.Fatalf("generated = %v, want preserved false from first patch", doc["generated"])
	}
	if doc["user_id"] != "u1" || doc["file_uid"] != "f1" {
		t.Fatalf("identity fields not stamped: %v", doc)
	}
	if _, ok := doc["modified"]; !ok {
		t.Fatalf("modified timestamp not stamped")
	}
}

func TestMemoryStoreMarkReady(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if ok := s.MarkReady(ctx, "u1", "f1", "videos"); !ok {
		t.Fatalf("MarkReady returned false")
	}
	doc, ok := s.Get(ctx, "u1", "f1", "videos")
	if !ok || doc["generated"] != true {
		t.Fatalf("generated = %v, want true", doc["generated"])
	}
}

func TestMemoryStoreSeparatesMediaTypes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.UpdateStatus(ctx, "u1", "f1", "images", Fields{"status": "processing"})
	if _, ok := s.Get(ctx, "u1", "f1", "videos"); ok {
		t.Fatalf("video document should not exist for an image write")
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.UpdateStatus(ctx, "u1", "f1", "images", Fields{"status": "processing"})
	doc, _ := s.Get(ctx, "u1", "f1", "images")
	doc["status"] = "mutated"

	again, _ := s.Get(ctx, "u1", "f1", "images")
	if again["status"] != "processing" {
		t.Fatalf("stored document mutated through Get copy")
	}
}

func TestDocPath(t *testing.T) {
	if got := DocPath("u1", "videos", "f1"); got != "generations/u1/videos/f1" {
		t.Fatalf("DocPath = %q", got)
	}
}
