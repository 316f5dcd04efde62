package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresStore persists generation documents as JSONB rows keyed by
// (user_id, media_type, file_uid). Merge-upserts use the || operator so
// concurrent writers resolve to last-write-wins, matching the external
// store's contract.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore wraps an existing pgx pool.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

const createTableQuery = `
CREATE TABLE IF NOT EXISTS generation_status (
	user_id    TEXT        NOT NULL,
	media_type TEXT        NOT NULL,
	file_uid   TEXT        NOT NULL,
	doc        JSONB       NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, media_type, file_uid)
);
`

// EnsureSchema creates the backing table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createTableQuery)
	return err
}

const upsertDocQuery = `
INSERT INTO generation_status (user_id, media_type, file_uid, doc, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (user_id, media_type, file_uid)
DO UPDATE SET doc = generation_status.doc || EXCLUDED.doc, updated_at = NOW();
`

func (s *PostgresStore) UpdateStatus(ctx context.Context, userID, fileUID, mediaType string, fields Fields) bool {
	patch := merge(Fields{"user_id": userID, "file_uid": fileUID}, fields)
	patch["modified"] = time.Now().UTC()
	doc, err := json.Marshal(patch)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", DocPath(userID, mediaType, fileUID)).Msg("store: encode status patch failed")
		return false
	}
	if _, err := s.pool.Exec(ctx, upsertDocQuery, userID, mediaType, fileUID, doc); err != nil {
		s.logger.Warn().Err(err).Str("path", DocPath(userID, mediaType, fileUID)).Msg("store: status upsert failed")
		return false
	}
	return true
}

func (s *PostgresStore) MarkReady(ctx context.Context, userID, fileUID, mediaType string) bool {
	return s.UpdateStatus(ctx, userID, fileUID, mediaType, Fields{"generated": true})
}

const selectDocQuery = `
SELECT doc FROM generation_status
WHERE user_id = $1 AND media_type = $2 AND file_uid = $3;
`

// Get fetches a generation document; absence is not an error.
func (s *PostgresStore) Get(ctx context.Context, userID, fileUID, mediaType string) (Fields, bool) {
	var doc []byte
	row := s.pool.QueryRow(ctx, selectDocQuery, userID, mediaType, fileUID)
	if err := row.Scan(&doc); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn().Err(err).Str("path", DocPath(userID, mediaType, fileUID)).Msg("store: status read failed")
		}
		return nil, false
	}
	var fields Fields
	if err := json.Unmarshal(doc, &fields); err != nil {
		s.logger.Warn().Err(err).Msg("store: decode status document failed")
		return nil, false
	}
	return fields, true
}

var (
	_ StatusStore = (*PostgresStore)(nil)
	_ Reader      = (*PostgresStore)(nil)
)
