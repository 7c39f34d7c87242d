// Package store is the single source of truth for story session state.
//
// All mutation goes through ApplyEvaluation and SetFinalStory so the
// evaluate → decide → mutate pipeline has exactly one state-changing step;
// a request that fails before reaching the store leaves the session
// untouched. Drivers serialize writers per session: concurrent submissions
// for the same session cannot corrupt completion monotonicity or duplicate
// story chunks, while different sessions proceed in parallel.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lateralab/soup-backend/internal/model"
)

// ChunkInput is a narrative fragment to append alongside an evaluation.
// Nonce deduplicates retries: a chunk whose nonce is already in the story log
// is silently skipped.
type ChunkInput struct {
	Body  string
	Nonce string
}

// Store persists story sessions.
type Store interface {
	// Create allocates a new ACTIVE session with completion 0 and an empty
	// story log. At most one ACTIVE session may exist per (user, puzzle);
	// violations return model.ErrSessionConflict.
	Create(ctx context.Context, userID, puzzleID, openingText string) (*model.Session, error)

	// Get retrieves a session, story log included, ordered by sequence.
	// Returns model.ErrSessionNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)

	// ApplyEvaluation atomically applies one evaluation outcome: completion
	// is clamped to [0,1] and never regresses (the stored value is the
	// maximum seen), chunk — when non-nil and its nonce unseen — is appended
	// to the story log, and reaching completion 1.0 transitions the session
	// to COMPLETED. Requires state ACTIVE (model.ErrInvalidState otherwise).
	// Returns the updated session.
	ApplyEvaluation(ctx context.Context, id uuid.UUID, completion float64, chunk *ChunkInput) (*model.Session, error)

	// SetFinalStory stores the composed narrative for a COMPLETED session.
	// The first write wins; later calls return the stored value unchanged,
	// making finalization idempotent. Requires state COMPLETED.
	SetFinalStory(ctx context.Context, id uuid.UUID, story string) (string, error)

	// ExpireStale transitions ACTIVE sessions untouched for longer than
	// idleFor to FAILED and reports how many were affected.
	ExpireStale(ctx context.Context, idleFor time.Duration) (int64, error)
}

// clampCompletion bounds an upstream completion fraction to [0,1].
func clampCompletion(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
