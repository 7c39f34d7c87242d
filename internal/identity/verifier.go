package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/model"
)

// Verifier resolves bearer credentials to user identities. No component
// trusts a client-supplied user id without passing the credential through
// here first.
type Verifier interface {
	// Verify validates a bearer token and returns the identity it belongs to.
	// Returns model.ErrUnauthorized for missing, malformed, expired or
	// revoked tokens.
	Verify(ctx context.Context, token string) (*model.User, error)

	// UpdateLanguage sets the user's language preference in the identity
	// provider's user metadata.
	UpdateLanguage(ctx context.Context, token string, lang model.Language) (*model.User, error)
}

// SupabaseVerifier validates tokens against Supabase GoTrue. When the project
// JWT secret is configured, access tokens are verified locally (HS256) and
// the provider round-trip is skipped; tokens the fast path cannot decide go
// to the provider.
type SupabaseVerifier struct {
	sb        *supabase.Client
	jwtSecret string
	log       zerolog.Logger
}

// NewSupabaseVerifier creates a verifier from configuration.
func NewSupabaseVerifier(cfg *config.Config, log zerolog.Logger) (*SupabaseVerifier, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("supabase URL and anon key are required")
	}

	sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}

	return &SupabaseVerifier{
		sb:        sb,
		jwtSecret: cfg.SupabaseJWTSecret,
		log:       log.With().Str("component", "identity").Logger(),
	}, nil
}

// accessClaims is the subset of Supabase access token claims this service
// reads.
type accessClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Verify implements Verifier.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrUnauthorized
	}

	if v.jwtSecret != "" {
		if user, err := v.verifyLocal(token); err == nil {
			return user, nil
		} else if errors.Is(err, model.ErrUnauthorized) {
			// Signature or expiry rejection is final; no point asking the
			// provider about a token signed with the same secret.
			return nil, model.ErrUnauthorized
		}
	}

	return v.verifyRemote(ctx, token)
}

// verifyLocal checks the token signature and expiry against the shared
// project secret. Returns model.ErrUnauthorized only for definitive
// rejections — an HMAC signature mismatch or an expired token — and other
// errors when the local path cannot decide (non-HMAC algorithms, unusable
// claims) and the provider should.
func (v *SupabaseVerifier) verifyLocal(token string) (*model.User, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrUnauthorized
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("token claims incomplete")
	}

	return &model.User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Language: metadataLanguage(claims.UserMetadata),
	}, nil
}

// verifyRemote asks GoTrue to resolve the token.
func (v *SupabaseVerifier) verifyRemote(ctx context.Context, token string) (*model.User, error) {
	if v.sb == nil {
		return nil, model.ErrUnauthorized
	}

	resp, err := v.sb.Auth.WithToken(token).GetUser()
	if err != nil || resp == nil {
		v.log.Debug().Err(err).Msg("provider rejected token")
		return nil, model.ErrUnauthorized
	}

	return &model.User{
		ID:       resp.ID.String(),
		Email:    resp.Email,
		Language: metadataLanguage(resp.UserMetadata),
	}, nil
}

// UpdateLanguage implements Verifier.
func (v *SupabaseVerifier) UpdateLanguage(ctx context.Context, token string, lang model.Language) (*model.User, error) {
	if !lang.Valid() {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	if v.sb == nil {
		return nil, model.ErrUnauthorized
	}

	resp, err := v.sb.Auth.WithToken(token).UpdateUser(types.UpdateUserRequest{
		Data: map[string]interface{}{"language": string(lang)},
	})
	if err != nil || resp == nil {
		return nil, fmt.Errorf("update user metadata: %w", err)
	}

	return &model.User{
		ID:       resp.ID.String(),
		Email:    resp.Email,
		Language: metadataLanguage(resp.UserMetadata),
	}, nil
}

func metadataLanguage(meta map[string]any) model.Language {
	raw, _ := meta["language"].(string)
	if lang := model.Language(raw); lang.Valid() {
		return lang
	}
	return ""
}
