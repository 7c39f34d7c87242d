// Package reasoning talks to the external evaluation/narration service.
//
// The service owns all NLP: answer classification, partial-credit scoring and
// story generation. This client only shapes requests, bounds them with
// timeouts and maps transport failures onto a small error taxonomy so the
// orchestrator can tell a retryable network fault from an upstream rejection.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/model"
)

// Gateway error taxonomy. Callers must treat ErrNetwork as retryable and
// must not mutate session state when any of these surface.
var (
	ErrNetwork  = errors.New("reasoning service unreachable or timed out")
	ErrUpstream = errors.New("reasoning service returned an error")
	ErrParse    = errors.New("reasoning service returned a malformed body")
)

// EvaluateRequest carries one user answer plus the puzzle context needed to
// judge it.
type EvaluateRequest struct {
	PuzzleID     string   `json:"puzzle_id"`
	PuzzlePrompt string   `json:"puzzle_prompt"`
	AnswerKey    string   `json:"answer_key"`
	Parts        []string `json:"parts,omitempty"`
	UserAnswer   string   `json:"user_answer"`
	Language     string   `json:"language,omitempty"`
}

// ContinueRequest asks for a narrative continuation after a confirmed idea.
type ContinueRequest struct {
	PuzzleID        string   `json:"puzzle_id"`
	PuzzleSummary   string   `json:"puzzle_summary"`
	UserCorrectIdea string   `json:"user_correct_idea"`
	StorySoFar      []string `json:"story_so_far,omitempty"`
}

// Client is the reasoning-service gateway used by the orchestrator.
type Client interface {
	// Evaluate classifies a user answer. The returned completion is the
	// upstream's fraction of sub-clues solved, unclamped.
	Evaluate(ctx context.Context, req EvaluateRequest) (*model.Evaluation, error)

	// OpeningText produces the opening narrative fragment for a new session.
	OpeningText(ctx context.Context, p *model.Puzzle) (string, error)

	// ContinueStory produces the next story chunk given a confirmed idea.
	ContinueStory(ctx context.Context, req ContinueRequest) (string, error)

	// ComposeFinal composes the complete narrative from the opening and the
	// accumulated chunks.
	ComposeFinal(ctx context.Context, opening string, chunks []string) (string, error)
}

// HTTPClient implements Client over the service's JSON API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPClient creates a reasoning client from configuration.
func NewHTTPClient(cfg *config.Config, log zerolog.Logger) *HTTPClient {
	timeout := cfg.ReasoningTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.ReasoningBaseURL, "/"),
		apiKey:  cfg.ReasoningAPIKey,
		timeout: timeout,
		// Per-request deadlines come from the context; the transport-level
		// timeout is a backstop.
		httpClient: &http.Client{Timeout: timeout + 5*time.Second},
		log:        log.With().Str("component", "reasoning").Logger(),
	}
}

type evaluateResponse struct {
	Result      string  `json:"result"`
	Explanation string  `json:"explanation"`
	Completion  float64 `json:"completion"`
}

// Evaluate implements Client.
func (c *HTTPClient) Evaluate(ctx context.Context, req EvaluateRequest) (*model.Evaluation, error) {
	var resp evaluateResponse
	if err := c.postJSON(ctx, "/v1/evaluate", req, &resp); err != nil {
		return nil, err
	}
	return &model.Evaluation{
		Result:      model.EvalResult(resp.Result).Normalize(),
		Explanation: resp.Explanation,
		Completion:  resp.Completion,
	}, nil
}

type openingRequest struct {
	PuzzleID string `json:"puzzle_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

type textResponse struct {
	Text string `json:"text"`
}

// OpeningText implements Client.
func (c *HTTPClient) OpeningText(ctx context.Context, p *model.Puzzle) (string, error) {
	var resp textResponse
	req := openingRequest{PuzzleID: p.ID, Title: p.Title, Content: p.Content}
	if err := c.postJSON(ctx, "/v1/story/opening", req, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("empty opening text: %w", ErrParse)
	}
	return resp.Text, nil
}

// ContinueStory implements Client.
func (c *HTTPClient) ContinueStory(ctx context.Context, req ContinueRequest) (string, error) {
	var resp textResponse
	if err := c.postJSON(ctx, "/v1/story/continue", req, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("empty story chunk: %w", ErrParse)
	}
	return resp.Text, nil
}

type composeRequest struct {
	Opening string   `json:"opening"`
	Chunks  []string `json:"chunks"`
}

// ComposeFinal implements Client.
func (c *HTTPClient) ComposeFinal(ctx context.Context, opening string, chunks []string) (string, error) {
	var resp textResponse
	req := composeRequest{Opening: opening, Chunks: chunks}
	if err := c.postJSON(ctx, "/v1/story/final", req, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("empty final story: %w", ErrParse)
	}
	return resp.Text, nil
}

// postJSON performs one POST with a bounded deadline and a single retry on
// transient failure (network fault or upstream 5xx).
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", path, ErrNetwork)
			case <-time.After(500 * time.Millisecond):
			}
			c.log.Debug().Str("path", path).Msg("retrying reasoning call")
		}

		lastErr = c.doOnce(ctx, path, payload, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *HTTPClient) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, ErrNetwork)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", path, ErrNetwork)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("reasoning call failed")
		return &statusError{path: path, status: resp.StatusCode}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, ErrParse)
	}
	return nil
}

// statusError is a non-2xx response. It unwraps to ErrUpstream so callers
// keep matching on the taxonomy while the retry loop can read the code.
type statusError struct {
	path   string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.path, e.status, ErrUpstream)
}

func (e *statusError) Unwrap() error { return ErrUpstream }

// retryable reports whether an error is worth one more attempt: transport
// faults and 5xx responses qualify, client errors and parse failures do not.
func retryable(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500
	}
	return false
}
