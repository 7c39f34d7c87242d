package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lateralab/soup-backend/internal/model"
)

// MemoryStore implements Store using in-process maps. Used by tests and
// single-node dev runs; durability comes from the Postgres driver.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*model.Session)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, userID, puzzleID, openingText string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.PuzzleID == puzzleID && sess.State == model.SessionStateActive {
			return nil, model.ErrSessionConflict
		}
	}

	now := time.Now()
	sess := &model.Session{
		ID:          uuid.New(),
		PuzzleID:    puzzleID,
		UserID:      userID,
		State:       model.SessionStateActive,
		Completion:  0,
		OpeningText: openingText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.sessions[sess.ID] = sess
	return snapshot(sess), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return snapshot(sess), nil
}

// ApplyEvaluation implements Store.
func (s *MemoryStore) ApplyEvaluation(ctx context.Context, id uuid.UUID, completion float64, chunk *ChunkInput) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if sess.State != model.SessionStateActive {
		return nil, model.ErrInvalidState
	}

	if chunk != nil && !hasNonce(sess, chunk.Nonce) {
		sess.StoryLog = append(sess.StoryLog, model.StoryChunk{
			Seq:       len(sess.StoryLog) + 1,
			Body:      chunk.Body,
			Nonce:     chunk.Nonce,
			CreatedAt: time.Now(),
		})
	}

	if c := clampCompletion(completion); c > sess.Completion {
		sess.Completion = c
	}
	if sess.Completion >= 1.0 {
		sess.State = model.SessionStateCompleted
	}
	sess.UpdatedAt = time.Now()

	return snapshot(sess), nil
}

// SetFinalStory implements Store.
func (s *MemoryStore) SetFinalStory(ctx context.Context, id uuid.UUID, story string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", model.ErrSessionNotFound
	}
	if sess.State != model.SessionStateCompleted {
		return "", model.ErrInvalidState
	}

	if sess.FinalStory == nil {
		stored := story
		sess.FinalStory = &stored
		sess.UpdatedAt = time.Now()
	}
	return *sess.FinalStory, nil
}

// ExpireStale implements Store.
func (s *MemoryStore) ExpireStale(ctx context.Context, idleFor time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-idleFor)
	var n int64
	for _, sess := range s.sessions {
		if sess.State == model.SessionStateActive && sess.UpdatedAt.Before(cutoff) {
			sess.State = model.SessionStateFailed
			sess.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func hasNonce(sess *model.Session, nonce string) bool {
	for _, c := range sess.StoryLog {
		if c.Nonce == nonce {
			return true
		}
	}
	return false
}

// snapshot copies a session so callers cannot mutate stored state.
func snapshot(sess *model.Session) *model.Session {
	cp := *sess
	if sess.StoryLog != nil {
		cp.StoryLog = make([]model.StoryChunk, len(sess.StoryLog))
		copy(cp.StoryLog, sess.StoryLog)
	}
	if sess.FinalStory != nil {
		v := *sess.FinalStory
		cp.FinalStory = &v
	}
	return &cp
}
