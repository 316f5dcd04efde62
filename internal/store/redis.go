package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisDocTTL = 7 * 24 * time.Hour

// RedisStore keeps generation documents as JSON blobs keyed by their
// document path. Merges are read-modify-write without locking; the contract
// is last-write-wins, so a lost intermediate patch is acceptable.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) UpdateStatus(ctx context.Context, userID, fileUID, mediaType string, fields Fields) bool {
	key := DocPath(userID, mediaType, fileUID)

	current := Fields{}
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &current); err != nil {
			s.logger.Warn().Err(err).Str("path", key).Msg("store: discarding undecodable redis document")
			current = Fields{}
		}
	case errors.Is(err, redis.Nil):
		// first write for this document
	default:
		s.logger.Warn().Err(err).Str("path", key).Msg("store: redis read failed")
		return false
	}

	patch := merge(Fields{"user_id": userID, "file_uid": fileUID}, fields)
	patch["modified"] = time.Now().UTC()
	doc, err := json.Marshal(merge(current, patch))
	if err != nil {
		s.logger.Warn().Err(err).Str("path", key).Msg("store: encode status patch failed")
		return false
	}
	if err := s.client.Set(ctx, key, doc, redisDocTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("path", key).Msg("store: redis write failed")
		return false
	}
	return true
}

func (s *RedisStore) MarkReady(ctx context.Context, userID, fileUID, mediaType string) bool {
	return s.UpdateStatus(ctx, userID, fileUID, mediaType, Fields{"generated": true})
}

// Get fetches a generation document; absence is not an error.
func (s *RedisStore) Get(ctx context.Context, userID, fileUID, mediaType string) (Fields, bool) {
	key := DocPath(userID, mediaType, fileUID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("path", key).Msg("store: redis read failed")
		}
		return nil, false
	}
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		s.logger.Warn().Err(err).Str("path", key).Msg("store: decode status document failed")
		return nil, false
	}
	return fields, true
}

var (
	_ StatusStore = (*RedisStore)(nil)
	_ Reader      = (*RedisStore)(nil)
)
