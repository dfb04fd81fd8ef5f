// internal/domain/auth/claims.go
package auth

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Candidate claim names, resolved in order. The backend and the external
// identity providers disagree on casing, so every lookup goes through these.
var (
	ProviderClaims      = []string{"authProvider", "AuthProvider", "provider"}
	FullNameClaims      = []string{"fullName"}
	FirstNameClaims     = []string{"firstName"}
	LastNameClaims      = []string{"lastName"}
	AdminClaims         = []string{"isAdmin", "IsAdmin"}
	EmployeeGroupClaims = []string{"employeeGroupId"}
	GroupClaims         = []string{"employeeGroupId", "userGroupId", "user_group_id", "groupId", "group_id"}
)

const DefaultAuthProvider = "Local"

// FirstSet returns the value of the first candidate that is set to anything
// but null, blank strings included.
func FirstSet(claims map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := claims[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// FirstPresent returns the first candidate whose value is neither null nor a
// blank string.
func FirstPresent(claims map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := claims[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// FirstString returns the first candidate holding a non-blank string, trimmed.
func FirstString(claims map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := claims[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// IDString coerces a string or numeric claim to its decimal string form.
func IDString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// Truthy interprets a permission flag or boolean claim. Strings count only when
// they spell "true" or "1"; backends serializing booleans as "False" must not
// grant access.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		s := strings.TrimSpace(t)
		return strings.EqualFold(s, "true") || s == "1"
	default:
		return false
	}
}
