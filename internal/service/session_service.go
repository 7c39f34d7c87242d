package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/puzzle"
	"github.com/lateralab/soup-backend/internal/reasoning"
	"github.com/lateralab/soup-backend/internal/store"
	"github.com/lateralab/soup-backend/internal/transcribe"
)

// storyNonceTTL bounds how long an append nonce blocks regeneration of the
// same chunk through the Redis fast path.
const storyNonceTTL = 24 * time.Hour

// SessionService orchestrates the puzzle-solving session lifecycle: starting
// a session, submitting answers, accumulating the story and producing the
// final narrative. All external calls happen before the single store
// mutation, so an upstream failure leaves the session exactly as it was.
type SessionService struct {
	sessions store.Store
	puzzles  puzzle.Gateway
	ai       reasoning.Client
	stt      transcribe.Transcriber
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewSessionService creates a SessionService. rdb may be nil; it only powers
// the best-effort duplicate-append suppression.
func NewSessionService(
	sessions store.Store,
	puzzles puzzle.Gateway,
	ai reasoning.Client,
	stt transcribe.Transcriber,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		puzzles:  puzzles,
		ai:       ai,
		stt:      stt,
		rdb:      rdb,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// Start creates a new ACTIVE session for the verified user and puzzle. The
// opening narrative is requested before the session exists, so a reasoning
// failure creates nothing.
func (s *SessionService) Start(ctx context.Context, user *model.User, puzzleID string) (*model.Session, error) {
	p, err := s.puzzles.GetByID(ctx, puzzleID)
	if err != nil {
		return nil, fmt.Errorf("load puzzle: %w", err)
	}

	opening, err := s.ai.OpeningText(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("opening narrative: %w", err)
	}

	sess, err := s.sessions.Create(ctx, user.ID, p.ID, opening)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("puzzle_id", p.ID).
		Msg("session started")
	return sess, nil
}

// SubmitVoice runs the voice answer pipeline: transcribe, evaluate, then —
// in one store step — append the story chunk (on yes) and advance
// completion. Timeouts and upstream failures surface before any mutation.
func (s *SessionService) SubmitVoice(ctx context.Context, user *model.User, sessionID uuid.UUID, audio []byte, mimeType string, lang model.Language) (*model.VoiceAnswer, error) {
	sess, err := s.ownedActiveSession(ctx, user, sessionID)
	if err != nil {
		return nil, err
	}

	p, err := s.puzzles.GetByID(ctx, sess.PuzzleID)
	if err != nil {
		return nil, fmt.Errorf("load puzzle: %w", err)
	}

	transcript, err := s.stt.Transcribe(ctx, audio, mimeType, lang)
	if err != nil {
		return nil, fmt.Errorf("transcribe answer: %w", err)
	}
	if strings.TrimSpace(transcript) == "" {
		// Nothing recognizable was said; don't burn an evaluation call.
		return &model.VoiceAnswer{
			Evaluation: model.EvalNotSure,
			Completion: sess.Completion,
		}, nil
	}

	eval, err := s.ai.Evaluate(ctx, reasoning.EvaluateRequest{
		PuzzleID:     p.ID,
		PuzzlePrompt: p.Content,
		AnswerKey:    p.FullAnswer,
		Parts:        p.Parts,
		UserAnswer:   transcript,
		Language:     string(lang),
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate answer: %w", err)
	}

	var chunk *store.ChunkInput
	if eval.Result.Positive() {
		body, err := s.ai.ContinueStory(ctx, reasoning.ContinueRequest{
			PuzzleID:        p.ID,
			PuzzleSummary:   p.Content,
			UserCorrectIdea: transcript,
			StorySoFar:      chunkBodies(sess.StoryLog),
		})
		if err != nil {
			// Completion must not advance if the narrative step failed; the
			// client retries the whole submission.
			return nil, fmt.Errorf("continue story: %w", err)
		}
		chunk = &store.ChunkInput{Body: body, Nonce: storyNonce(sessionID, transcript)}
	}

	updated, err := s.sessions.ApplyEvaluation(ctx, sessionID, eval.Completion, chunk)
	if err != nil {
		return nil, fmt.Errorf("apply evaluation: %w", err)
	}

	return &model.VoiceAnswer{
		Evaluation:    eval.Result,
		Completion:    updated.Completion,
		Transcription: transcript,
	}, nil
}

// AppendStory generates and appends a story chunk for an idea already judged
// correct. Replays of the same idea return the stored chunk instead of
// generating a duplicate.
func (s *SessionService) AppendStory(ctx context.Context, user *model.User, req model.AppendStoryRequest) (string, error) {
	sessionID, err := uuid.Parse(req.StorySessionID)
	if err != nil {
		return "", fmt.Errorf("parse session id: %w", model.ErrSessionNotFound)
	}

	sess, err := s.ownedActiveSession(ctx, user, sessionID)
	if err != nil {
		return "", err
	}

	nonce := storyNonce(sessionID, req.UserCorrectIdea)
	if body, ok := findChunk(sess.StoryLog, nonce); ok {
		return body, nil
	}

	// Claim the nonce before the expensive narration call so a concurrent
	// retry doesn't generate the chunk twice. A lost claim means another
	// request is (or was) generating it; serve the stored chunk if it
	// landed already. The claim is released either way once the chunk is
	// persisted or the attempt failed.
	claimed, release := s.claimNonce(ctx, sessionID, nonce)
	if !claimed {
		if fresh, err := s.sessions.Get(ctx, sessionID); err == nil {
			if body, ok := findChunk(fresh.StoryLog, nonce); ok {
				return body, nil
			}
		}
	}
	if release != nil {
		defer release()
	}

	body, err := s.ai.ContinueStory(ctx, reasoning.ContinueRequest{
		PuzzleID:        req.PuzzleID,
		PuzzleSummary:   req.PuzzleSummary,
		UserCorrectIdea: req.UserCorrectIdea,
		StorySoFar:      chunkBodies(sess.StoryLog),
	})
	if err != nil {
		return "", fmt.Errorf("continue story: %w", err)
	}

	updated, err := s.sessions.ApplyEvaluation(ctx, sessionID, sess.Completion, &store.ChunkInput{Body: body, Nonce: nonce})
	if err != nil {
		return "", fmt.Errorf("append chunk: %w", err)
	}

	if stored, ok := findChunk(updated.StoryLog, nonce); ok {
		return stored, nil
	}
	return body, nil
}

// FinalStory returns the composed narrative of a COMPLETED session,
// composing and storing it on first request. Repeat calls return the stored
// text unchanged.
func (s *SessionService) FinalStory(ctx context.Context, user *model.User, sessionID uuid.UUID) (string, error) {
	sess, err := s.ownedSession(ctx, user, sessionID)
	if err != nil {
		return "", err
	}
	if sess.State != model.SessionStateCompleted {
		return "", model.ErrInvalidState
	}
	if sess.FinalStory != nil {
		return *sess.FinalStory, nil
	}

	story, err := s.ai.ComposeFinal(ctx, sess.OpeningText, chunkBodies(sess.StoryLog))
	if err != nil {
		// The session is solved; a narration outage must not make the
		// ending unreachable. Compose deterministically instead.
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("final composition failed, concatenating")
		story = concatStory(sess.OpeningText, chunkBodies(sess.StoryLog))
	}

	stored, err := s.sessions.SetFinalStory(ctx, sessionID, story)
	if err != nil {
		return "", fmt.Errorf("store final story: %w", err)
	}
	return stored, nil
}

// ownedSession loads a session and hides its existence from anyone but its
// owner.
func (s *SessionService) ownedSession(ctx context.Context, user *model.User, sessionID uuid.UUID) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != user.ID {
		return nil, model.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionService) ownedActiveSession(ctx context.Context, user *model.User, sessionID uuid.UUID) (*model.Session, error) {
	sess, err := s.ownedSession(ctx, user, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != model.SessionStateActive {
		return nil, model.ErrInvalidState
	}
	return sess, nil
}

// claimNonce marks an append nonce as in-flight via Redis SETNX. Returns
// whether the claim was won and a release func for the failure path.
func (s *SessionService) claimNonce(ctx context.Context, sessionID uuid.UUID, nonce string) (bool, func()) {
	if s.rdb == nil {
		return true, nil
	}
	key := config.CacheKey.StoryNonceKey(sessionID.String(), nonce)
	ok, err := s.rdb.SetNX(ctx, key, 1, storyNonceTTL).Result()
	if err != nil {
		// Redis being down only disables dedup; the store's nonce
		// uniqueness still prevents duplicate chunks.
		return true, nil
	}
	if !ok {
		return false, nil
	}
	return true, func() { s.rdb.Del(context.Background(), key) }
}

// storyNonce derives the idempotency key for one confirmed idea within one
// session.
func storyNonce(sessionID uuid.UUID, idea string) string {
	h := sha256.Sum256([]byte(sessionID.String() + "\x00" + strings.ToLower(strings.TrimSpace(idea))))
	return hex.EncodeToString(h[:16])
}

func chunkBodies(log []model.StoryChunk) []string {
	bodies := make([]string, 0, len(log))
	for _, c := range log {
		bodies = append(bodies, c.Body)
	}
	return bodies
}

func findChunk(log []model.StoryChunk, nonce string) (string, bool) {
	for _, c := range log {
		if c.Nonce == nonce {
			return c.Body, true
		}
	}
	return "", false
}

func concatStory(opening string, chunks []string) string {
	parts := append([]string{opening}, chunks...)
	return strings.Join(parts, "\n\n")
}
