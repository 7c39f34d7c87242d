package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates story session states.
type SessionState string

const (
	SessionStateActive    SessionState = "ACTIVE"
	SessionStateCompleted SessionState = "COMPLETED"
	// SessionStateFailed marks sessions abandoned mid-attempt; applied by the
	// expiry worker, never by a player request.
	SessionStateFailed SessionState = "FAILED"
)

// Terminal reports whether no further mutation of the session is permitted.
func (s SessionState) Terminal() bool {
	return s == SessionStateCompleted || s == SessionStateFailed
}

// StoryChunk is one narrative fragment appended after a correct answer.
// Nonce deduplicates client retries of the same confirmed idea.
type StoryChunk struct {
	Seq       int       `json:"seq"`
	Body      string    `json:"body"`
	Nonce     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one user's attempt at one puzzle. Completion is monotonically
// non-decreasing while ACTIVE; the story log is append-only.
type Session struct {
	ID          uuid.UUID    `json:"id"`
	PuzzleID    string       `json:"puzzle_id"`
	UserID      string       `json:"user_id"`
	State       SessionState `json:"state"`
	Completion  float64      `json:"completion"`
	OpeningText string       `json:"opening_text"`
	StoryLog    []StoryChunk `json:"story_log"`
	FinalStory  *string      `json:"final_story,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// StartSessionRequest is the payload for starting a story session.
// The user_id field is accepted for wire compatibility with older clients but
// is ignored; the user is always taken from the verified credential.
type StartSessionRequest struct {
	PuzzleID     string `json:"puzzleId" binding:"required,min=1,max=128"`
	LegacyUserID string `json:"userId" binding:"omitempty"`
}

// AppendStoryRequest is the payload for appending a story chunk after a
// correct answer.
type AppendStoryRequest struct {
	StorySessionID  string `json:"storySessionId" binding:"required,uuid"`
	PuzzleID        string `json:"puzzleId" binding:"required,min=1,max=128"`
	UserCorrectIdea string `json:"userCorrectIdea" binding:"required,min=1"`
	PuzzleSummary   string `json:"puzzleSummary" binding:"required,min=1"`
}

// FinalStoryRequest is the payload for fetching the composed narrative.
type FinalStoryRequest struct {
	StorySessionID string `json:"storySessionId" binding:"required,uuid"`
}
