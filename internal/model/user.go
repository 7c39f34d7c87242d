package model

// Language is a supported UI language.
type Language string

const (
	LanguageEN Language = "en"
	LanguageZH Language = "zh"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageEN || l == LanguageZH
}

// User is the identity resolved from a bearer credential by the identity
// provider. It is read per request and never stored by this service.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Language Language `json:"language,omitempty"`
}

// UpdateLanguageRequest is the payload for changing the language preference.
type UpdateLanguageRequest struct {
	Language Language `json:"language" binding:"required,oneof=en zh"`
}
