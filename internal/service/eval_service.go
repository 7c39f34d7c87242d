package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/reasoning"
)

// EvalService is the stateless text-evaluation passthrough: it judges an
// answer against caller-supplied puzzle context and never touches session
// state.
type EvalService struct {
	ai  reasoning.Client
	log zerolog.Logger
}

// NewEvalService creates an EvalService.
func NewEvalService(ai reasoning.Client, log zerolog.Logger) *EvalService {
	return &EvalService{
		ai:  ai,
		log: log.With().Str("component", "eval_service").Logger(),
	}
}

// Evaluate classifies a text answer.
func (s *EvalService) Evaluate(ctx context.Context, req model.EvaluateRequest, lang model.Language) (*model.Evaluation, error) {
	eval, err := s.ai.Evaluate(ctx, reasoning.EvaluateRequest{
		PuzzleID:     req.PuzzleID,
		PuzzlePrompt: req.PuzzlePrompt,
		AnswerKey:    req.AnswerKey,
		UserAnswer:   req.UserAnswer,
		Language:     string(lang),
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return eval, nil
}
