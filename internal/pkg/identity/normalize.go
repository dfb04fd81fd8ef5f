// internal/pkg/identity/normalize.go
package identity

import (
	"maps"
	"strings"

	"memoriza-service/internal/domain/auth"
)

// Normalize turns a decoded token payload into an Identity. The provider
// defaults to "Local" and a fullName is synthesized from the name claims when
// the token carries none. Every other claim passes through untouched.
func Normalize(decoded map[string]any) *auth.Identity {
	claims := maps.Clone(decoded)
	if claims == nil {
		claims = map[string]any{}
	}

	// only the first set candidate counts, even when it is unusable
	provider := auth.DefaultAuthProvider
	if v, ok := auth.FirstSet(claims, auth.ProviderClaims...); ok {
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			provider = strings.TrimSpace(s)
		}
	}
	claims[auth.ProviderClaims[0]] = provider

	if auth.FirstString(claims, auth.FullNameClaims...) == "" {
		first := auth.FirstString(claims, auth.FirstNameClaims...)
		last := auth.FirstString(claims, auth.LastNameClaims...)
		if name := ComposeFullName(first, last); name != "" {
			claims[auth.FullNameClaims[0]] = name
		}
	}

	return &auth.Identity{Claims: claims}
}

// ComposeFullName joins first and last name. Without a first name there is no
// full name.
func ComposeFullName(first, last string) string {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" {
		return ""
	}
	if last == "" {
		return first
	}
	return first + " " + last
}

// ResolveGroupID picks the group whose permissions govern the identity. An
// employee group always wins over the customer-facing user group.
func ResolveGroupID(user *auth.Identity) (string, bool) {
	if user == nil {
		return "", false
	}
	for _, key := range auth.GroupClaims {
		v, ok := auth.FirstPresent(user.Claims, key)
		if !ok {
			continue
		}
		if id, ok := auth.IDString(v); ok {
			return id, true
		}
	}
	return "", false
}
