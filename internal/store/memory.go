package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps generation documents in process memory. It backs local
// development and tests, and serves as the default store when neither
// Postgres nor Redis is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Fields
}

// NewMemoryStore returns an empty in-memory status store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Fields)}
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, userID, fileUID, mediaType string, fields Fields) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	patch := merge(Fields{"user_id": userID, "file_uid": fileUID}, fields)
	patch["modified"] = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	key := DocPath(userID, mediaType, fileUID)
	s.docs[key] = merge(s.docs[key], patch)
	return true
}

func (s *MemoryStore) MarkReady(ctx context.Context, userID, fileUID, mediaType string) bool {
	return s.UpdateStatus(ctx, userID, fileUID, mediaType, Fields{"generated": true})
}

// Get returns a copy of the stored document.
func (s *MemoryStore) Get(ctx context.Context, userID, fileUID, mediaType string) (Fields, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[DocPath(userID, mediaType, fileUID)]
	if !ok {
		return nil, false
	}
	out := make(Fields, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

var (
	_ StatusStore = (*MemoryStore)(nil)
	_ Reader      = (*MemoryStore)(nil)
)
