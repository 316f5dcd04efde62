// Package store tracks per-job lifecycle state in an external, best-effort
// document store. Documents live under generations/{user_id}/{media_type}/
// {file_uid} and writes are merge-upserts with last-write-wins semantics.
package store

import (
	"context"
	"fmt"
)

// Fields is a merge patch applied to a generation document.
type Fields map[string]any

// StatusStore is the outbound status reporting contract. Implementations are
// best-effort: they report success or failure as a bool and never raise, so
// callers can treat status reporting as a degradable concern. A failed write
// does not fail the job.
type StatusStore interface {
	// UpdateStatus merge-upserts fields into the generation document.
	UpdateStatus(ctx context.Context, userID, fileUID, mediaType string, fields Fields) bool

	// MarkReady flips the generated flag on an existing document.
	MarkReady(ctx context.Context, userID, fileUID, mediaType string) bool
}

// Reader exposes document lookup for status polling endpoints.
type Reader interface {
	Get(ctx context.Context, userID, fileUID, mediaType string) (Fields, bool)
}

// DocPath renders the hierarchical document path for one generation.
func DocPath(userID, mediaType, fileUID string) string {
	return fmt.Sprintf("generations/%s/%s/%s", userID, mediaType, fileUID)
}

// merge applies patch over base, allocating base when needed.
func merge(base, patch Fields) Fields {
	if base == nil {
		base = make(Fields, len(patch))
	}
	for k, v := range patch {
		base[k] = v
	}
	return base
}
