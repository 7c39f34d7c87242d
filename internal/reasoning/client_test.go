package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/model"
)

func newTestClient(baseURL string, timeout time.Duration) *HTTPClient {
	cfg := &config.Config{
		ReasoningBaseURL: baseURL,
		ReasoningAPIKey:  "test-key",
		ReasoningTimeout: timeout,
	}
	return NewHTTPClient(cfg, zerolog.Nop())
}

func TestEvaluateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/evaluate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}

		var req EvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.UserAnswer != "headphones" {
			t.Errorf("user_answer = %q", req.UserAnswer)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"result":      "yes",
			"explanation": "correct",
			"completion":  0.33,
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	eval, err := c.Evaluate(context.Background(), EvaluateRequest{
		PuzzleID:   "silent_concert",
		UserAnswer: "headphones",
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Result != model.EvalYes || eval.Completion != 0.33 {
		t.Errorf("eval = %+v", eval)
	}
}

func TestEvaluateNormalizesUnknownVerdicts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": "maybe?", "completion": 0.1})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	eval, err := c.Evaluate(context.Background(), EvaluateRequest{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Result != model.EvalNotSure {
		t.Errorf("result = %q, want not_sure", eval.Result)
	}
}

func TestServerErrorMapsToUpstreamAndRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.Evaluate(context.Background(), EvaluateRequest{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (one retry on 5xx)", got)
	}
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.Evaluate(context.Background(), EvaluateRequest{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (4xx is final)", got)
	}
}

func TestRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"text": "the next chunk"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	body, err := c.ContinueStory(context.Background(), ContinueRequest{UserCorrectIdea: "headphones"})
	if err != nil {
		t.Fatalf("ContinueStory: %v", err)
	}
	if body != "the next chunk" {
		t.Errorf("body = %q", body)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"network", fmt.Errorf("do: %w", ErrNetwork), true},
		{"status 500", &statusError{path: "/v1/evaluate", status: 500}, true},
		{"status 503 wrapped", fmt.Errorf("call: %w", &statusError{path: "/v1/evaluate", status: 503}), true},
		{"status 422", &statusError{path: "/v1/evaluate", status: 422}, false},
		{"parse", fmt.Errorf("decode: %w", ErrParse), false},
	}
	for _, tc := range cases {
		if got := retryable(tc.err); got != tc.want {
			t.Errorf("%s: retryable = %v, want %v", tc.name, got, tc.want)
		}
	}

	// The typed status error still matches the taxonomy sentinel.
	if !errors.Is(&statusError{path: "/v1/evaluate", status: 500}, ErrUpstream) {
		t.Error("statusError does not unwrap to ErrUpstream")
	}
}

func TestTimeoutMapsToNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 50*time.Millisecond)
	_, err := c.OpeningText(context.Background(), &model.Puzzle{ID: "p"})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestMalformedBodyMapsToParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.Evaluate(context.Background(), EvaluateRequest{})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestEmptyTextMapsToParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": ""})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	if _, err := c.ComposeFinal(context.Background(), "opening", nil); !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}
