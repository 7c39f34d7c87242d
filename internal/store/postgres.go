package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lateralab/soup-backend/internal/model"
)

// pgUniqueViolation is the Postgres error code for unique constraint hits.
const pgUniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL. Mutations lock the session
// row (SELECT ... FOR UPDATE), giving at-most-one-writer semantics per
// session while leaving other sessions untouched. The one-ACTIVE-session
// rule is backed by a partial unique index on (user_id, puzzle_id).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, userID, puzzleID, openingText string) (*model.Session, error) {
	sess := &model.Session{
		PuzzleID:    puzzleID,
		UserID:      userID,
		State:       model.SessionStateActive,
		OpeningText: openingText,
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO story_sessions (user_id, puzzle_id, opening_text)
		 VALUES ($1, $2, $3)
		 RETURNING id, completion, created_at, updated_at`,
		userID, puzzleID, openingText,
	).Scan(&sess.ID, &sess.Completion, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, model.ErrSessionConflict
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return sess, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	sess, err := s.scanSession(ctx, s.pool, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.loadChunks(ctx, s.pool, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ApplyEvaluation implements Store.
func (s *PostgresStore) ApplyEvaluation(ctx context.Context, id uuid.UUID, completion float64, chunk *ChunkInput) (*model.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	sess, err := s.scanSession(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if sess.State != model.SessionStateActive {
		return nil, model.ErrInvalidState
	}

	if chunk != nil {
		// Seq assignment is safe under the row lock; the nonce conflict
		// silently drops replayed chunks.
		_, err = tx.Exec(ctx,
			`INSERT INTO story_chunks (session_id, seq, nonce, body)
			 SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3
			 FROM story_chunks WHERE session_id = $1
			 ON CONFLICT (session_id, nonce) DO NOTHING`,
			id, chunk.Nonce, chunk.Body)
		if err != nil {
			return nil, fmt.Errorf("append chunk: %w", err)
		}
	}

	newCompletion := sess.Completion
	if c := clampCompletion(completion); c > newCompletion {
		newCompletion = c
	}
	newState := sess.State
	if newCompletion >= 1.0 {
		newState = model.SessionStateCompleted
	}

	err = tx.QueryRow(ctx,
		`UPDATE story_sessions
		 SET completion = $2, state = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING completion, state, updated_at`,
		id, newCompletion, newState,
	).Scan(&sess.Completion, &sess.State, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if err := s.loadChunks(ctx, tx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sess, nil
}

// SetFinalStory implements Store.
func (s *PostgresStore) SetFinalStory(ctx context.Context, id uuid.UUID, story string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	sess, err := s.scanSession(ctx, tx, id, true)
	if err != nil {
		return "", err
	}
	if sess.State != model.SessionStateCompleted {
		return "", model.ErrInvalidState
	}

	if sess.FinalStory == nil {
		_, err = tx.Exec(ctx,
			`UPDATE story_sessions
			 SET final_story = $2, updated_at = NOW()
			 WHERE id = $1 AND final_story IS NULL`,
			id, story)
		if err != nil {
			return "", fmt.Errorf("store final story: %w", err)
		}
		sess.FinalStory = &story
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return *sess.FinalStory, nil
}

// ExpireStale implements Store.
func (s *PostgresStore) ExpireStale(ctx context.Context, idleFor time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE story_sessions
		 SET state = $1, updated_at = NOW()
		 WHERE state = $2 AND updated_at < NOW() - $3::interval`,
		model.SessionStateFailed, model.SessionStateActive, idleFor.String())
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// querier abstracts pool vs transaction for reads.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) scanSession(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*model.Session, error) {
	query := `SELECT id, puzzle_id, user_id, state, completion, opening_text, final_story, created_at, updated_at
		 FROM story_sessions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	sess := &model.Session{}
	err := q.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.PuzzleID, &sess.UserID, &sess.State, &sess.Completion,
		&sess.OpeningText, &sess.FinalStory, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) loadChunks(ctx context.Context, q querier, sess *model.Session) error {
	rows, err := q.Query(ctx,
		`SELECT seq, nonce, body, created_at
		 FROM story_chunks WHERE session_id = $1 ORDER BY seq`, sess.ID)
	if err != nil {
		return fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	sess.StoryLog = nil
	for rows.Next() {
		var c model.StoryChunk
		if err := rows.Scan(&c.Seq, &c.Nonce, &c.Body, &c.CreatedAt); err != nil {
			return fmt.Errorf("scan chunk: %w", err)
		}
		sess.StoryLog = append(sess.StoryLog, c)
	}
	return rows.Err()
}
