package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lateralab/soup-backend/internal/identity"
	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/response"
)

const (
	// ContextKeyUser is the Gin context key for the verified identity.
	ContextKeyUser = "user"
	// ContextKeyToken is the Gin context key for the raw bearer token, kept
	// for calls that act on the identity provider on the user's behalf.
	ContextKeyToken = "bearer_token"
)

// RequireUser validates the bearer credential on every request and stores
// the resolved identity in the request context. Handlers never see a
// client-supplied user id; the verified identity is the only source.
func RequireUser(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		user, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyToken, token)
		response.SetLanguage(c, user.Language)
		c.Next()
	}
}

// GetUser retrieves the verified identity from the Gin context.
func GetUser(c *gin.Context) *model.User {
	val, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := val.(*model.User)
	if !ok {
		return nil
	}
	return user
}

// GetToken retrieves the raw bearer token from the Gin context.
func GetToken(c *gin.Context) string {
	val, exists := c.Get(ContextKeyToken)
	if !exists {
		return ""
	}
	token, _ := val.(string)
	return token
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
