// internal/pkg/jwt/verifier.go
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"

	xerrors "memoriza-service/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks RS256 tokens signed by the Memoriza API. Empty issuer or
// audience disables that check. Every rejection wraps xerrors.ErrInvalidToken.
type Verifier struct {
	pub    *rsa.PublicKey
	parser *jwt.Parser
}

func NewVerifier(pub *rsa.PublicKey, issuer, audience string) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &Verifier{pub: pub, parser: jwt.NewParser(opts...)}
}

// Verify returns the claims of a token whose signature, expiry, issuer and
// audience all check out.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.pub == nil {
		return nil, fmt.Errorf("%w: verifier has no public key", xerrors.ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.pub, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: expired", xerrors.ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return nil, fmt.Errorf("%w: issued for another service: %v", xerrors.ErrInvalidToken, err)
	default:
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidToken, err)
	}
}

// LoadVerifier builds a verifier from the PEM public key at path.
func LoadVerifier(path, issuer, audience string) (*Verifier, error) {
	pub, err := LoadRSAPublicKeyFromPEM(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", path, err)
	}
	return NewVerifier(pub, issuer, audience), nil
}
