package permission

import (
	"testing"

	"memoriza-service/internal/domain/auth"
)

func employee(actions map[string]any) *auth.Identity {
	return &auth.Identity{
		Claims:            map[string]any{"isAdmin": true, "employeeGroupId": "7"},
		GroupPermissions:  []auth.ModulePermission{{Module: ModuleProducts, Actions: actions}},
		Modules:           []string{ModuleProducts},
		PermissionsLoaded: true,
	}
}

func TestEvaluateOwnerBypass(t *testing.T) {
	owner := &auth.Identity{Claims: map[string]any{"isAdmin": true}}

	for _, module := range []string{ModuleProducts, ModuleCarousel, "anything"} {
		caps := Evaluate(module, owner, owner.IsAdmin())
		if !caps.CanView || !caps.CanCreate || !caps.CanEdit || !caps.CanDelete || !caps.CanExport || !caps.CanUpdateStatus {
			t.Errorf("%s: owner capabilities = %+v, want all true", module, caps)
		}
		if !caps.HasPermission("anything") {
			t.Errorf("%s: owner HasPermission(anything) = false", module)
		}
	}
}

func TestEvaluateEmployeeWithoutEntry(t *testing.T) {
	user := employee(map[string]any{"view": true})

	caps := Evaluate(ModuleCarousel, user, user.IsAdmin())
	if caps.CanView || caps.CanCreate || caps.CanEdit || caps.CanDelete || caps.CanExport || caps.CanUpdateStatus {
		t.Errorf("capabilities = %+v, want all false", caps)
	}
	if caps.HasPermission("view") {
		t.Error("HasPermission(view) = true without a module entry")
	}
}

func TestEvaluateEmployeeAdminIsNotOwner(t *testing.T) {
	user := employee(map[string]any{})

	// even when a caller insists the user is an admin, the employee group wins
	caps := Evaluate(ModuleCarousel, user, true)
	if caps.CanView {
		t.Errorf("employee admin got owner capabilities: %+v", caps)
	}
	if user.IsAdmin() {
		t.Error("IsAdmin() = true for an employee")
	}
}

func TestEvaluateActionMatching(t *testing.T) {
	tests := []struct {
		name    string
		actions map[string]any
		check   func(CapabilitySet) bool
		want    bool
	}{
		{
			name:    "exact",
			actions: map[string]any{"view": true},
			check:   func(c CapabilitySet) bool { return c.CanView },
			want:    true,
		},
		{
			name:    "capitalized",
			actions: map[string]any{"View": true},
			check:   func(c CapabilitySet) bool { return c.CanView },
			want:    true,
		},
		{
			name:    "upper",
			actions: map[string]any{"DELETE": true},
			check:   func(c CapabilitySet) bool { return c.CanDelete },
			want:    true,
		},
		{
			name:    "falsy exact then truthy capitalized",
			actions: map[string]any{"edit": false, "Edit": true},
			check:   func(c CapabilitySet) bool { return c.CanEdit },
			want:    true,
		},
		{
			name:    "explicit false",
			actions: map[string]any{"create": false},
			check:   func(c CapabilitySet) bool { return c.CanCreate },
			want:    false,
		},
		{
			name:    "mixed case not matched",
			actions: map[string]any{"vIEW": true},
			check:   func(c CapabilitySet) bool { return c.CanView },
			want:    false,
		},
		{
			name:    "update_status",
			actions: map[string]any{"update_status": true},
			check:   func(c CapabilitySet) bool { return c.CanUpdateStatus },
			want:    true,
		},
		{
			name:    "updateStatus",
			actions: map[string]any{"updateStatus": 1.0},
			check:   func(c CapabilitySet) bool { return c.CanUpdateStatus },
			want:    true,
		},
		{
			name:    "UpdateStatus via HasPermission",
			actions: map[string]any{"UpdateStatus": true},
			check:   func(c CapabilitySet) bool { return c.HasPermission("updateStatus") },
			want:    true,
		},
		{
			name:    "custom action",
			actions: map[string]any{"IMPRIMIR": "true"},
			check:   func(c CapabilitySet) bool { return c.HasPermission("imprimir") },
			want:    true,
		},
		{
			name:    "nil actions",
			actions: nil,
			check:   func(c CapabilitySet) bool { return c.CanView || c.HasPermission("view") },
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := employee(tt.actions)
			caps := Evaluate(ModuleProducts, user, user.IsAdmin())
			if got := tt.check(caps); got != tt.want {
				t.Errorf("got %v, want %v (caps %+v)", got, tt.want, caps)
			}
		})
	}
}

func TestEvaluateNilUser(t *testing.T) {
	caps := Evaluate(ModuleProducts, nil, true)
	if caps.CanView || caps.HasPermission("view") {
		t.Errorf("nil user capabilities = %+v", caps)
	}
}

func TestCapabilitySetAllows(t *testing.T) {
	user := employee(map[string]any{"view": true, "Edit": true})
	caps := Evaluate(ModuleProducts, user, false)

	if !caps.Allows(ActionView) || !caps.Allows(ActionEdit) {
		t.Errorf("Allows view/edit = false: %+v", caps)
	}
	if caps.Allows(ActionDelete) {
		t.Error("Allows(delete) = true")
	}
}
