package store

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lateralab/soup-backend/internal/model"
)

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sess, err := s.Create(ctx, "user-1", "silent_concert", "opening")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.State != model.SessionStateActive {
		t.Errorf("state = %s, want ACTIVE", sess.State)
	}
	if sess.Completion != 0 {
		t.Errorf("completion = %v, want 0", sess.Completion)
	}
	if len(sess.StoryLog) != 0 {
		t.Errorf("story log = %d chunks, want 0", len(sess.StoryLog))
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != sess.ID || got.OpeningText != "opening" {
		t.Errorf("Get returned %+v", got)
	}
}

func TestGetUnknownSession(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), uuid.New())
	if !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestActiveSessionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.Create(ctx, "user-1", "silent_concert", "opening")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Same user, same puzzle: rejected while the first is ACTIVE.
	if _, err := s.Create(ctx, "user-1", "silent_concert", "opening"); !errors.Is(err, model.ErrSessionConflict) {
		t.Errorf("duplicate create err = %v, want ErrSessionConflict", err)
	}

	// Different puzzle or different user: fine.
	if _, err := s.Create(ctx, "user-1", "wrong_voicemail", "opening"); err != nil {
		t.Errorf("other puzzle create err = %v", err)
	}
	if _, err := s.Create(ctx, "user-2", "silent_concert", "opening"); err != nil {
		t.Errorf("other user create err = %v", err)
	}

	// Once terminal, the slot frees up.
	if _, err := s.ApplyEvaluation(ctx, first.ID, 1.0, nil); err != nil {
		t.Fatalf("complete first: %v", err)
	}
	if _, err := s.Create(ctx, "user-1", "silent_concert", "opening"); err != nil {
		t.Errorf("create after completion err = %v", err)
	}
}

func TestCompletionMonotonicAndClamped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, _ := s.Create(ctx, "u", "p", "o")

	steps := []struct {
		submit float64
		want   float64
	}{
		{0.33, 0.33},
		{0.10, 0.33}, // lower value must not regress
		{-5, 0.33},   // clamped below
		{0.66, 0.66},
	}
	for _, step := range steps {
		got, err := s.ApplyEvaluation(ctx, sess.ID, step.submit, nil)
		if err != nil {
			t.Fatalf("ApplyEvaluation(%v): %v", step.submit, err)
		}
		if got.Completion != step.want {
			t.Errorf("after submit %v: completion = %v, want %v", step.submit, got.Completion, step.want)
		}
		if got.State != model.SessionStateActive {
			t.Errorf("after submit %v: state = %s, want ACTIVE", step.submit, got.State)
		}
	}

	// Values above 1 clamp to 1 and complete the session.
	got, err := s.ApplyEvaluation(ctx, sess.ID, 7.5, nil)
	if err != nil {
		t.Fatalf("ApplyEvaluation(7.5): %v", err)
	}
	if got.Completion != 1.0 {
		t.Errorf("completion = %v, want 1.0", got.Completion)
	}
	if got.State != model.SessionStateCompleted {
		t.Errorf("state = %s, want COMPLETED", got.State)
	}
}

func TestCompletionNeverRegressesUnderRandomSequence(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, _ := s.Create(ctx, "u", "p", "o")

	rng := rand.New(rand.NewSource(42))
	prev := 0.0
	for i := 0; i < 200; i++ {
		got, err := s.ApplyEvaluation(ctx, sess.ID, rng.Float64()*0.999, nil)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got.Completion < prev {
			t.Fatalf("step %d: completion regressed %v -> %v", i, prev, got.Completion)
		}
		prev = got.Completion
	}
}

func TestChunkAppendAndNonceDedup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, _ := s.Create(ctx, "u", "p", "o")

	got, err := s.ApplyEvaluation(ctx, sess.ID, 0.5, &ChunkInput{Body: "first", Nonce: "n1"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(got.StoryLog) != 1 || got.StoryLog[0].Body != "first" || got.StoryLog[0].Seq != 1 {
		t.Fatalf("story log = %+v", got.StoryLog)
	}

	// Replay of the same nonce is dropped silently.
	got, err = s.ApplyEvaluation(ctx, sess.ID, 0.5, &ChunkInput{Body: "first again", Nonce: "n1"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(got.StoryLog) != 1 {
		t.Fatalf("replay appended a duplicate: %+v", got.StoryLog)
	}

	got, err = s.ApplyEvaluation(ctx, sess.ID, 0.5, &ChunkInput{Body: "second", Nonce: "n2"})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if len(got.StoryLog) != 2 || got.StoryLog[1].Seq != 2 {
		t.Fatalf("story log = %+v", got.StoryLog)
	}
}

func TestTerminalSessionRejectsMutation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, _ := s.Create(ctx, "u", "p", "o")

	if _, err := s.ApplyEvaluation(ctx, sess.ID, 1.0, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := s.ApplyEvaluation(ctx, sess.ID, 0.5, nil); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("mutate completed err = %v, want ErrInvalidState", err)
	}
	if _, err := s.ApplyEvaluation(ctx, sess.ID, 0.5, &ChunkInput{Body: "late", Nonce: "n"}); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("append to completed err = %v, want ErrInvalidState", err)
	}

	got, _ := s.Get(ctx, sess.ID)
	if len(got.StoryLog) != 0 {
		t.Errorf("rejected append still landed: %+v", got.StoryLog)
	}
}

func TestSetFinalStoryFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, _ := s.Create(ctx, "u", "p", "o")

	// Not COMPLETED yet.
	if _, err := s.SetFinalStory(ctx, sess.ID, "too early"); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("early finalize err = %v, want ErrInvalidState", err)
	}

	s.ApplyEvaluation(ctx, sess.ID, 1.0, nil)

	first, err := s.SetFinalStory(ctx, sess.ID, "the story")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if first != "the story" {
		t.Errorf("stored = %q", first)
	}

	// Repeat write returns the original, not the new text.
	second, err := s.SetFinalStory(ctx, sess.ID, "a different story")
	if err != nil {
		t.Fatalf("refinalize: %v", err)
	}
	if second != "the story" {
		t.Errorf("second finalize = %q, want the first story", second)
	}
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	stale, _ := s.Create(ctx, "u1", "p", "o")
	fresh, _ := s.Create(ctx, "u2", "p", "o")
	done, _ := s.Create(ctx, "u3", "p", "o")
	s.ApplyEvaluation(ctx, done.ID, 1.0, nil)

	// Backdate the stale session past the cutoff.
	s.mu.Lock()
	s.sessions[stale.ID].UpdatedAt = time.Now().Add(-48 * time.Hour)
	s.sessions[done.ID].UpdatedAt = time.Now().Add(-48 * time.Hour)
	s.mu.Unlock()

	n, err := s.ExpireStale(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}

	got, _ := s.Get(ctx, stale.ID)
	if got.State != model.SessionStateFailed {
		t.Errorf("stale state = %s, want FAILED", got.State)
	}
	got, _ = s.Get(ctx, fresh.ID)
	if got.State != model.SessionStateActive {
		t.Errorf("fresh state = %s, want ACTIVE", got.State)
	}
	// Terminal sessions are left alone even when old.
	got, _ = s.Get(ctx, done.ID)
	if got.State != model.SessionStateCompleted {
		t.Errorf("completed state = %s, want COMPLETED", got.State)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, _ := s.Create(ctx, "u", "p", "o")
	s.ApplyEvaluation(ctx, sess.ID, 0.5, &ChunkInput{Body: "chunk", Nonce: "n1"})

	got, _ := s.Get(ctx, sess.ID)
	got.StoryLog[0].Body = "mutated"
	got.Completion = 0

	again, _ := s.Get(ctx, sess.ID)
	if again.StoryLog[0].Body != "chunk" || again.Completion != 0.5 {
		t.Errorf("caller mutation leaked into store: %+v", again)
	}
}
