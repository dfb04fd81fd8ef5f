// internal/domain/auth/account.go
package auth

import "time"

// Account is a user record of the development backend.
type Account struct {
	ID              int64     `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	PasswordHash    string    `json:"-" db:"password_hash"`
	FirstName       string    `json:"firstName" db:"first_name"`
	LastName        string    `json:"lastName" db:"last_name"`
	Phone           string    `json:"phone,omitempty" db:"phone"`
	IsAdmin         bool      `json:"isAdmin" db:"is_admin"`
	EmployeeGroupID *int64    `json:"employeeGroupId,omitempty" db:"employee_group_id"`
	UserGroupID     *int64    `json:"userGroupId,omitempty" db:"user_group_id"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// IsOwner reports an admin account outside any employee group.
func (a *Account) IsOwner() bool {
	return a.IsAdmin && a.EmployeeGroupID == nil
}
