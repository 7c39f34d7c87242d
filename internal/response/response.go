package response

import (
	"github.com/gin-gonic/gin"

	"github.com/lateralab/soup-backend/internal/model"
)

// The mobile client consumes flat JSON bodies ({storySessionId: ...}) rather
// than a wrapped envelope, so success responses pass the payload through
// unchanged and failures carry a flat error shape:
//
//	{"error": "<localized message>", "code": "<ERR_CODE>", "fields": {...}}

// ContextKeyLanguage is the Gin context key for the resolved response language.
const ContextKeyLanguage = "response_language"

// ErrorBody is the failure response shape.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   ErrCode           `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Success sends a successful JSON response with the given status code and data.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Fail sends an error response with an error code and no field-level details.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, ErrorBody{Error: GetMessage(code, Language(c)), Code: code})
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, ErrorBody{Error: GetMessage(code, Language(c)), Code: code, Fields: fields})
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, ErrorBody{Error: GetMessage(code, Language(c)), Code: code})
}

// SetLanguage records the response language for the remainder of the request.
// The auth middleware calls this with the verified identity's preference.
func SetLanguage(c *gin.Context, lang model.Language) {
	if lang.Valid() {
		c.Set(ContextKeyLanguage, lang)
	}
}

// Language resolves the response language: identity preference first, then an
// explicit ?lang= query, then English.
func Language(c *gin.Context) model.Language {
	if v, ok := c.Get(ContextKeyLanguage); ok {
		if lang, ok := v.(model.Language); ok && lang.Valid() {
			return lang
		}
	}
	if lang := model.Language(c.Query("lang")); lang.Valid() {
		return lang
	}
	return model.LanguageEN
}
