// internal/pkg/permission/evaluator.go
package permission

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"memoriza-service/internal/domain/auth"
)

// Admin modules known to the dashboard.
const (
	ModuleProducts   = "produtos"
	ModuleCategories = "categorias"
	ModuleSizes      = "tamanhos"
	ModuleColors     = "cores"
	ModuleOrders     = "pedidos"
	ModuleCustomers  = "clientes"
	ModuleCarousel   = "carousel"
	ModuleEmployees  = "funcionarios"
	ModuleGroups     = "grupos"
	ModuleDashboard  = "dashboard"
)

// Fixed actions.
const (
	ActionView         = "view"
	ActionCreate       = "create"
	ActionEdit         = "edit"
	ActionDelete       = "delete"
	ActionExport       = "export"
	ActionUpdateStatus = "update_status"
)

// updateStatusAliases are the spellings the backend uses for the update-status flag.
var updateStatusAliases = []string{"update_status", "updateStatus"}

// CapabilitySet is what a user may do inside one module.
type CapabilitySet struct {
	Module          string `json:"module"`
	CanView         bool   `json:"canView"`
	CanCreate       bool   `json:"canCreate"`
	CanEdit         bool   `json:"canEdit"`
	CanDelete       bool   `json:"canDelete"`
	CanExport       bool   `json:"canExport"`
	CanUpdateStatus bool   `json:"canUpdateStatus"`

	owner   bool
	actions map[string]any
}

// HasPermission checks an arbitrary action flag.
func (c CapabilitySet) HasPermission(action string) bool {
	if c.owner {
		return true
	}
	if action == ActionUpdateStatus || action == "updateStatus" {
		return c.CanUpdateStatus
	}
	return hasAction(c.actions, action)
}

// Allows reports the fixed capability for action.
func (c CapabilitySet) Allows(action string) bool {
	switch action {
	case ActionView:
		return c.CanView
	case ActionCreate:
		return c.CanCreate
	case ActionEdit:
		return c.CanEdit
	case ActionDelete:
		return c.CanDelete
	case ActionExport:
		return c.CanExport
	default:
		return c.HasPermission(action)
	}
}

// Evaluate derives the capability set of user in module. Owner admins (admin
// flag and no employee group) get everything. Everyone else gets exactly what
// the group entry for module grants, and nothing when there is no entry.
func Evaluate(module string, user *auth.Identity, isAdmin bool) CapabilitySet {
	if isAdmin && user != nil {
		if _, employee := user.EmployeeGroupID(); !employee {
			return CapabilitySet{
				Module:          module,
				CanView:         true,
				CanCreate:       true,
				CanEdit:         true,
				CanDelete:       true,
				CanExport:       true,
				CanUpdateStatus: true,
				owner:           true,
			}
		}
	}

	entry, ok := user.Permission(module)
	if !ok {
		return CapabilitySet{Module: module}
	}

	actions := entry.Actions
	return CapabilitySet{
		Module:          module,
		CanView:         hasAction(actions, ActionView),
		CanCreate:       hasAction(actions, ActionCreate),
		CanEdit:         hasAction(actions, ActionEdit),
		CanDelete:       hasAction(actions, ActionDelete),
		CanExport:       hasAction(actions, ActionExport),
		CanUpdateStatus: hasAnyAction(actions, updateStatusAliases...),
		actions:         actions,
	}
}

// hasAction looks the action up as given, capitalized, then upper-cased.
func hasAction(actions map[string]any, action string) bool {
	if actions == nil || action == "" {
		return false
	}
	for _, key := range []string{action, capitalize(action), strings.ToUpper(action)} {
		if v, ok := actions[key]; ok && auth.Truthy(v) {
			return true
		}
	}
	return false
}

func hasAnyAction(actions map[string]any, names ...string) bool {
	for _, n := range names {
		if hasAction(actions, n) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
