package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/lateralab/soup-backend/internal/model"
)

const testSecret = "super-secret-project-jwt"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func localVerifier() *SupabaseVerifier {
	// No provider client: every test token must be decidable locally.
	return &SupabaseVerifier{jwtSecret: testSecret, log: zerolog.Nop()}
}

func TestVerifyLocalToken(t *testing.T) {
	v := localVerifier()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "user-123",
		"email": "player@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{
			"language": "zh",
		},
	})

	user, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.ID != "user-123" || user.Email != "player@example.com" {
		t.Errorf("user = %+v", user)
	}
	if user.Language != model.LanguageZH {
		t.Errorf("language = %q, want zh", user.Language)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := localVerifier()

	cases := map[string]string{
		"empty":     "",
		"malformed": "not-a-jwt",
		"wrong secret": signToken(t, "some-other-secret", jwt.MapClaims{
			"sub": "user-123",
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
		"expired": signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-123",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}),
	}

	for name, token := range cases {
		if _, err := v.Verify(context.Background(), token); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestVerifyLocalDefersNonHMACTokens(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	// The shared secret can't check an RS256 signature, so the local path
	// must not issue a final rejection; the provider decides.
	v := localVerifier()
	if _, err := v.verifyLocal(token); errors.Is(err, model.ErrUnauthorized) {
		t.Fatal("RS256 token rejected locally instead of deferring to the provider")
	}
}

func TestVerifyLocalFinalRejections(t *testing.T) {
	v := localVerifier()

	cases := map[string]string{
		"wrong secret": signToken(t, "some-other-secret", jwt.MapClaims{
			"sub": "user-123",
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
		"expired": signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-123",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}),
	}
	for name, token := range cases {
		if _, err := v.verifyLocal(token); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want a final ErrUnauthorized", name, err)
		}
	}
}

func TestVerifyMissingSubjectFallsThrough(t *testing.T) {
	v := localVerifier()
	token := signToken(t, testSecret, jwt.MapClaims{
		"email": "nobody@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	// Valid signature but no subject: local path can't decide, and with no
	// provider configured the token is rejected.
	if _, err := v.Verify(context.Background(), token); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyIgnoresUnknownMetadataLanguage(t *testing.T) {
	v := localVerifier()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{
			"language": "klingon",
		},
	})

	user, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.Language != "" {
		t.Errorf("language = %q, want empty", user.Language)
	}
}
