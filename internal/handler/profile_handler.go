package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lateralab/soup-backend/internal/identity"
	"github.com/lateralab/soup-backend/internal/middleware"
	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/response"
	"github.com/lateralab/soup-backend/internal/validator"
)

// ProfileHandler handles the authenticated user's profile endpoints.
type ProfileHandler struct {
	verifier identity.Verifier
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(verifier identity.Verifier) *ProfileHandler {
	return &ProfileHandler{verifier: verifier}
}

// Me godoc
// GET /me
// Returns the profile of the currently authenticated user.
func (h *ProfileHandler) Me(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"language": user.Language,
	})
}

// UpdateLanguage godoc
// PUT /me/language
// Persists the user's language preference in their identity metadata.
func (h *ProfileHandler) UpdateLanguage(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	lang := response.Language(c)

	var req model.UpdateLanguageRequest
	if fields := validator.Bind(c, &req, lang); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	updated, err := h.verifier.UpdateLanguage(c.Request.Context(), middleware.GetToken(c), req.Language)
	if err != nil {
		failFromErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":       updated.ID,
		"email":    updated.Email,
		"language": updated.Language,
	})
}
