// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	priv     *rsa.PrivateKey
	issuer   string
	audience string
	kid      string // key id for rotation
	Ttl      time.Duration
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{
		priv:     priv,
		issuer:   issuer,
		audience: audience,
		kid:      kid,
		Ttl:      ttl,
	}
}

// Subject describes the account a token is minted for.
type Subject struct {
	ID              int64
	Email           string
	FirstName       string
	LastName        string
	IsAdmin         bool
	UserGroupID     *int64
	EmployeeGroupID *int64
	AuthProvider    string
}

// Generate signs an access token for the subject and returns it with its jti.
func (g *Generator) Generate(sub Subject) (string, string, error) {
	if g.priv == nil {
		return "", "", fmt.Errorf("jwt generator has nil private key")
	}

	now := time.Now()
	jti := ulid.Make().String()

	provider := strings.TrimSpace(sub.AuthProvider)
	if provider == "" {
		provider = "Local"
	}

	claims := &Claims{
		Email:           sub.Email,
		FirstName:       sub.FirstName,
		LastName:        sub.LastName,
		IsAdmin:         sub.IsAdmin,
		UserGroupID:     sub.UserGroupID,
		EmployeeGroupID: sub.EmployeeGroupID,
		AuthProvider:    provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   fmt.Sprintf("%d", sub.ID),
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(g.Ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	return signed, jti, err
}
