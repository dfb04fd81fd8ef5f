// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload minted for Memoriza accounts. Field names follow the
// backend's camelCase wire format so the session layer can decode them.
type Claims struct {
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	IsAdmin         bool   `json:"isAdmin"`
	UserGroupID     *int64 `json:"userGroupId,omitempty"`
	EmployeeGroupID *int64 `json:"employeeGroupId,omitempty"`
	AuthProvider    string `json:"authProvider,omitempty"`
	jwt.RegisteredClaims
}

// IsOwner reports an admin that is not scoped to an employee group.
func (c *Claims) IsOwner() bool {
	return c.IsAdmin && c.EmployeeGroupID == nil
}

// GroupID returns the group that governs this account, employee group first.
func (c *Claims) GroupID() (int64, bool) {
	if c.EmployeeGroupID != nil {
		return *c.EmployeeGroupID, true
	}
	if c.UserGroupID != nil {
		return *c.UserGroupID, true
	}
	return 0, false
}
