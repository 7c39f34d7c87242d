package response

import "github.com/lateralab/soup-backend/internal/model"

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrInvalidState    ErrCode = "INVALID_STATE"
	ErrSessionConflict ErrCode = "SESSION_CONFLICT"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrAudioRequired ErrCode = "AUDIO_FILE_REQUIRED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstreamTimeout ErrCode = "UPSTREAM_TIMEOUT"
	ErrUpstream        ErrCode = "UPSTREAM_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns the user-facing message for an error code in the given
// language. The client renders these verbatim, so they stay short and never
// leak upstream response text.
func GetMessage(code ErrCode, lang model.Language) string {
	if lang == model.LanguageZH {
		return zhMessages(code)
	}
	return enMessages(code)
}

func enMessages(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "Missing or invalid Authorization header."
	case ErrTokenInvalid:
		return "Invalid or expired token."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrNotFound:
		return "Resource not found."
	case ErrInvalidState:
		return "The session is not in the required state."
	case ErrSessionConflict:
		return "You already have an active session for this puzzle."
	case ErrAudioRequired:
		return "An audio file upload is required."
	case ErrUpstreamTimeout:
		return "The request timed out. Please try again."
	case ErrUpstream:
		return "An upstream service failed. Please try again."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

func zhMessages(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "缺少或无效的授权信息。"
	case ErrTokenInvalid:
		return "令牌无效或已过期。"
	case ErrValidation:
		return "校验失败,请检查输入内容。"
	case ErrInvalidID:
		return "标识符格式无效。"
	case ErrInvalidPayload:
		return "请求内容无效。"
	case ErrNotFound:
		return "未找到资源。"
	case ErrInvalidState:
		return "会话状态不符合要求。"
	case ErrSessionConflict:
		return "你已经有一个进行中的谜题会话。"
	case ErrAudioRequired:
		return "需要上传音频文件。"
	case ErrUpstreamTimeout:
		return "请求超时,请重试。"
	case ErrUpstream:
		return "上游服务出错,请重试。"
	case ErrRateLimitExceeded:
		return "请求过于频繁,请稍后再试。"
	case ErrInternal:
		return "服务器内部错误。"
	default:
		return "发生了意外错误。"
	}
}
