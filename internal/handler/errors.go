package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/reasoning"
	"github.com/lateralab/soup-backend/internal/response"
)

// failFromErr maps a service error onto the HTTP taxonomy: domain errors to
// their 4xx codes, gateway failures to 502/504, everything else to 500.
func failFromErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
	case errors.Is(err, model.ErrPuzzleNotFound), errors.Is(err, model.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, model.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, model.ErrSessionConflict):
		response.Fail(c, http.StatusConflict, response.ErrSessionConflict)
	case errors.Is(err, reasoning.ErrNetwork):
		response.Fail(c, http.StatusGatewayTimeout, response.ErrUpstreamTimeout)
	case errors.Is(err, reasoning.ErrUpstream), errors.Is(err, reasoning.ErrParse):
		response.Fail(c, http.StatusBadGateway, response.ErrUpstream)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
