package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lateralab/soup-backend/internal/middleware"
	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/response"
	"github.com/lateralab/soup-backend/internal/service"
	"github.com/lateralab/soup-backend/internal/validator"
)

// maxAudioBytes caps a single voice upload. Recordings are short answer
// attempts, not dictation.
const maxAudioBytes = 10 << 20

// ChatHandler handles the answer submission endpoints.
type ChatHandler struct {
	sessionService *service.SessionService
	evalService    *service.EvalService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(sessionService *service.SessionService, evalService *service.EvalService) *ChatHandler {
	return &ChatHandler{
		sessionService: sessionService,
		evalService:    evalService,
	}
}

// Transcribe godoc
// POST /chat/transcribe?sessionId=<uuid>
// Accepts a voice recording, transcribes it, and evaluates the transcript
// against the session's puzzle in one round trip.
func (h *ChatHandler) Transcribe(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Query("sessionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	file, header, err := c.Request.FormFile("audioFile")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrAudioRequired)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if len(audio) > maxAudioBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	// An explicit language field on the upload wins over the profile
	// preference; recordings aren't always in the UI language.
	lang := response.Language(c)
	if v := model.Language(c.PostForm("language")); v.Valid() {
		lang = v
	}

	answer, err := h.sessionService.SubmitVoice(
		c.Request.Context(),
		user,
		sessionID,
		audio,
		header.Header.Get("Content-Type"),
		lang,
	)
	if err != nil {
		failFromErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, answer)
}

// Evaluate godoc
// POST /chat/evaluate
// Stateless text evaluation: classifies a typed answer against the supplied
// puzzle material without touching any session.
func (h *ChatHandler) Evaluate(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	lang := response.Language(c)

	var req model.EvaluateRequest
	if fields := validator.Bind(c, &req, lang); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eval, err := h.evalService.Evaluate(c.Request.Context(), req, lang)
	if err != nil {
		failFromErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result":      eval.Result,
		"explanation": eval.Explanation,
	})
}
