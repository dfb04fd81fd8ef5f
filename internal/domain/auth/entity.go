// internal/domain/auth/entity.go
package auth

import "maps"

// Identity is the normalized token payload plus the permission data fetched
// for its group. Claims keeps every decoded claim, normalized ones included.
type Identity struct {
	Claims            map[string]any     `json:"claims"`
	GroupPermissions  []ModulePermission `json:"groupPermissions,omitempty"`
	Modules           []string           `json:"modules,omitempty"`
	PermissionsLoaded bool               `json:"permissionsLoaded"`
}

// ModulePermission grants actions inside one admin module.
type ModulePermission struct {
	Module  string         `json:"module"`
	Actions map[string]any `json:"actions"`
}

// PermissionGroup is the backend's description of an employee or user group.
type PermissionGroup struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name,omitempty"`
	Permissions []ModulePermission `json:"permissions"`
}

// ModuleNames lists the modules of the group in order, without duplicates.
func (g *PermissionGroup) ModuleNames() []string {
	seen := make(map[string]struct{}, len(g.Permissions))
	names := make([]string, 0, len(g.Permissions))
	for _, p := range g.Permissions {
		if _, dup := seen[p.Module]; dup {
			continue
		}
		seen[p.Module] = struct{}{}
		names = append(names, p.Module)
	}
	return names
}

func (i *Identity) Claim(key string) any {
	if i == nil {
		return nil
	}
	return i.Claims[key]
}

func (i *Identity) AuthProvider() string {
	if i == nil {
		return ""
	}
	return FirstString(i.Claims, ProviderClaims...)
}

func (i *Identity) FullName() string {
	if i == nil {
		return ""
	}
	return FirstString(i.Claims, FullNameClaims...)
}

func (i *Identity) Email() string {
	if i == nil {
		return ""
	}
	return FirstString(i.Claims, "email")
}

func (i *Identity) Subject() string {
	if i == nil {
		return ""
	}
	if v, ok := FirstPresent(i.Claims, "sub", "nameid", "id"); ok {
		s, _ := IDString(v)
		return s
	}
	return ""
}

// EmployeeGroupID reports the employee group the identity belongs to, if any.
func (i *Identity) EmployeeGroupID() (string, bool) {
	if i == nil {
		return "", false
	}
	v, ok := FirstPresent(i.Claims, EmployeeGroupClaims...)
	if !ok {
		return "", false
	}
	return IDString(v)
}

// AdminClaim reports the raw admin flag from the token.
func (i *Identity) AdminClaim() bool {
	if i == nil {
		return false
	}
	v, ok := FirstPresent(i.Claims, AdminClaims...)
	return ok && Truthy(v)
}

// IsAdmin is true only for owner admins: the admin flag without an employee
// group. Employees flagged as admin are governed by their group permissions.
func (i *Identity) IsAdmin() bool {
	if !i.AdminClaim() {
		return false
	}
	_, employee := i.EmployeeGroupID()
	return !employee
}

// Permission returns the entry for module, matched exactly.
func (i *Identity) Permission(module string) (ModulePermission, bool) {
	if i == nil {
		return ModulePermission{}, false
	}
	for _, p := range i.GroupPermissions {
		if p.Module == module {
			return p, true
		}
	}
	return ModulePermission{}, false
}

func (i *Identity) HasModule(module string) bool {
	_, ok := i.Permission(module)
	return ok
}

// Clone returns a copy that shares no maps or slices with i.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := &Identity{
		Claims:            maps.Clone(i.Claims),
		PermissionsLoaded: i.PermissionsLoaded,
	}
	if out.Claims == nil {
		out.Claims = map[string]any{}
	}
	if i.GroupPermissions != nil {
		out.GroupPermissions = make([]ModulePermission, len(i.GroupPermissions))
		for idx, p := range i.GroupPermissions {
			out.GroupPermissions[idx] = ModulePermission{Module: p.Module, Actions: maps.Clone(p.Actions)}
		}
	}
	if i.Modules != nil {
		out.Modules = append([]string(nil), i.Modules...)
	}
	return out
}

// View flattens the identity into the shape handed to UI consumers.
func (i *Identity) View() map[string]any {
	if i == nil {
		return nil
	}
	out := maps.Clone(i.Claims)
	if out == nil {
		out = map[string]any{}
	}
	out["isAdmin"] = i.IsAdmin()
	if i.PermissionsLoaded {
		out["groupPermissions"] = i.GroupPermissions
		out["modules"] = i.Modules
	}
	return out
}
