package auth

import (
	"context"
	"strings"

	apperrors "gymsync/internal/errors"
)

// Verifier checks a raw bearer credential: signature, expiry and revocation.
// It is the single verification path for HTTP requests and realtime channels.
type Verifier struct {
	tokens      *TokenService
	revocations RevocationStore
}

// NewVerifier creates a verifier. revocations may be nil.
func NewVerifier(tokens *TokenService, revocations RevocationStore) *Verifier {
	return &Verifier{tokens: tokens, revocations: revocations}
}

// Verify returns the token's claims or an Unauthorized error.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.ErrMissingToken
	}
	claims, err := v.tokens.Validate(raw)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if v.revocations != nil && v.revocations.IsRevoked(ctx, claims.ID) {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
