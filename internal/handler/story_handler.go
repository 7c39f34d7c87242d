package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lateralab/soup-backend/internal/middleware"
	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/response"
	"github.com/lateralab/soup-backend/internal/service"
	"github.com/lateralab/soup-backend/internal/validator"
)

// StoryHandler handles the story session lifecycle endpoints.
type StoryHandler struct {
	sessionService *service.SessionService
}

// NewStoryHandler creates a new StoryHandler.
func NewStoryHandler(sessionService *service.SessionService) *StoryHandler {
	return &StoryHandler{sessionService: sessionService}
}

// Start godoc
// POST /story/start
// Opens a new session for the requested puzzle and returns the opening text.
func (h *StoryHandler) Start(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	lang := response.Language(c)

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req, lang); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Start(c.Request.Context(), user, req.PuzzleID)
	if err != nil {
		failFromErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"storySessionId": sess.ID.String(),
		"openingText":    sess.OpeningText,
	})
}

// Append godoc
// POST /story/append
// Appends a narrative chunk for a confirmed idea. Retries of the same idea
// return the already-stored chunk.
func (h *StoryHandler) Append(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	lang := response.Language(c)

	var req model.AppendStoryRequest
	if fields := validator.Bind(c, &req, lang); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	chunk, err := h.sessionService.AppendStory(c.Request.Context(), user, req)
	if err != nil {
		failFromErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"storyChunk": chunk,
	})
}

// Final godoc
// POST /story/final
// Returns the composed narrative of a completed session. Safe to call more
// than once; the first composed story is returned on every call.
func (h *StoryHandler) Final(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	lang := response.Language(c)

	var req model.FinalStoryRequest
	if fields := validator.Bind(c, &req, lang); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sessionID, err := uuid.Parse(req.StorySessionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	story, err := h.sessionService.FinalStory(c.Request.Context(), user, sessionID)
	if err != nil {
		failFromErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"finalStory": story,
	})
}
