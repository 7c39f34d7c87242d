package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lateralab/soup-backend/internal/middleware"
	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/puzzle"
	"github.com/lateralab/soup-backend/internal/response"
)

// PuzzleHandler handles the puzzle catalog endpoints. Responses go through
// PublicView so answer material never reaches the client.
type PuzzleHandler struct {
	puzzles puzzle.Gateway
}

// NewPuzzleHandler creates a new PuzzleHandler.
func NewPuzzleHandler(puzzles puzzle.Gateway) *PuzzleHandler {
	return &PuzzleHandler{puzzles: puzzles}
}

// List godoc
// GET /puzzles
// Returns the puzzle catalog without answer material.
func (h *PuzzleHandler) List(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	puzzles, err := h.puzzles.ListAll(c.Request.Context())
	if err != nil {
		failFromErr(c, err)
		return
	}

	views := make([]*model.Puzzle, 0, len(puzzles))
	for i := range puzzles {
		views = append(views, puzzles[i].PublicView())
	}

	response.Success(c, http.StatusOK, gin.H{"puzzles": views})
}

// Get godoc
// GET /puzzles/:id
// Returns one puzzle without answer material.
func (h *PuzzleHandler) Get(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	p, err := h.puzzles.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, p.PublicView())
}
