package model

// EvalResult is the closed classification returned by the reasoning service.
// Raw upstream text is never forwarded to the client.
type EvalResult string

const (
	EvalYes     EvalResult = "yes"
	EvalNo      EvalResult = "no"
	EvalNotSure EvalResult = "not_sure"
)

// Normalize maps arbitrary upstream labels onto the closed classification,
// defaulting to not_sure for anything unrecognized.
func (r EvalResult) Normalize() EvalResult {
	switch r {
	case EvalYes, EvalNo, EvalNotSure:
		return r
	default:
		return EvalNotSure
	}
}

// Positive reports whether the classification confirms the user's idea.
func (r EvalResult) Positive() bool { return r == EvalYes }

// Evaluation is the transient verdict for a single submitted answer.
// Completion is the fraction of sub-clues the upstream considers solved; the
// session store clamps it and never lets the stored value regress.
type Evaluation struct {
	Result      EvalResult `json:"result"`
	Explanation string     `json:"explanation"`
	Completion  float64    `json:"completion"`
}

// VoiceAnswer is the result of the voice path: transcription plus evaluation
// against the session's puzzle.
type VoiceAnswer struct {
	Evaluation    EvalResult `json:"evaluation"`
	Completion    float64    `json:"completion"`
	Transcription string     `json:"transcription,omitempty"`
}

// EvaluateRequest is the payload for the stateless text evaluation endpoint.
type EvaluateRequest struct {
	PuzzleID     string `json:"puzzleId" binding:"required,min=1,max=128"`
	PuzzlePrompt string `json:"puzzlePrompt" binding:"required,min=1"`
	AnswerKey    string `json:"answerKey" binding:"required,min=1"`
	UserAnswer   string `json:"userAnswer" binding:"required,min=1"`
}
