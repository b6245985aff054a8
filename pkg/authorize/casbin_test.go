package authorize

import (
	"context"
	"errors"
	"testing"

	"github.com/ataa-platform/ataa_backend/config"
)

func seededAuth(t *testing.T) IAuthorization {
	t.Helper()
	a, err := NewFromConfig(config.AuthorizationConfig{})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	return a
}

func TestEnforceSeededDefaults(t *testing.T) {
	a := seededAuth(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		role    Role
		obj     Resource
		act     Action
		allowed bool
	}{
		{"admin wildcard", RoleAdmin, ResourceBeneficiary, ActionDelete, true},
		{"case manager manages beneficiaries", RoleCaseManager, ResourceBeneficiary, ActionUpdate, true},
		{"case manager reads orgs", RoleCaseManager, ResourceOrganization, ActionRead, true},
		{"case manager cannot delete orgs", RoleCaseManager, ResourceOrganization, ActionDelete, false},
		{"volunteer reads beneficiaries", RoleVolunteer, ResourceBeneficiary, ActionRead, true},
		{"volunteer cannot delete", RoleVolunteer, ResourceBeneficiary, ActionDelete, false},
		{"volunteer cannot approve", RoleVolunteer, ResourceApproval, ActionApprove, false},
		{"admin approves", RoleAdmin, ResourceApproval, ActionApprove, true},
		{"org manager owns deliveries", RoleOrgManager, ResourceDelivery, ActionCreate, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := a.Enforce(ctx, tt.role, tt.obj, tt.act)
			if err != nil {
				t.Fatalf("Enforce: %v", err)
			}
			if ok != tt.allowed {
				t.Fatalf("allowed = %v, want %v", ok, tt.allowed)
			}
		})
	}
}

func TestEnforceGuardrails(t *testing.T) {
	a := seededAuth(t)
	ctx := context.Background()

	if _, err := a.Enforce(ctx, RoleAdmin, "spaceship", ActionRead); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("unknown resource err = %v, want ErrInvalidArgs", err)
	}
	if _, err := a.Enforce(ctx, RoleAdmin, ResourceBeneficiary, "teleport"); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("unknown action err = %v, want ErrInvalidArgs", err)
	}
	if _, err := a.Enforce(ctx, "", ResourceBeneficiary, ActionRead); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("empty subject err = %v, want ErrInvalidArgs", err)
	}
}

func TestMustEnforce(t *testing.T) {
	a := seededAuth(t)
	ctx := context.Background()

	if err := a.MustEnforce(ctx, RoleAdmin, ResourceBeneficiary, ActionRead); err != nil {
		t.Fatalf("MustEnforce allowed case: %v", err)
	}
	if err := a.MustEnforce(ctx, RoleVolunteer, ResourceApproval, ActionApprove); !errors.Is(err, ErrForbidden) {
		t.Fatalf("MustEnforce denied case err = %v, want ErrForbidden", err)
	}
}

func TestSuperadminBypass(t *testing.T) {
	a, err := NewFromConfig(config.AuthorizationConfig{SuperadminBypass: true})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	ok, err := a.Enforce(context.Background(), RoleSuperAdmin, ResourceApproval, ActionApprove)
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !ok {
		t.Fatal("superadmin bypass must allow everything")
	}
}

func TestAddRemovePermission(t *testing.T) {
	a := seededAuth(t)
	ctx := context.Background()

	if _, err := a.AddPermission(ctx, RoleVolunteer, ResourceDelivery, ActionCreate); err != nil {
		t.Fatalf("AddPermission: %v", err)
	}
	ok, _ := a.Enforce(ctx, RoleVolunteer, ResourceDelivery, ActionCreate)
	if !ok {
		t.Fatal("added permission must be enforceable")
	}

	if _, err := a.RemovePermission(ctx, RoleVolunteer, ResourceDelivery, ActionCreate); err != nil {
		t.Fatalf("RemovePermission: %v", err)
	}
	ok, _ = a.Enforce(ctx, RoleVolunteer, ResourceDelivery, ActionCreate)
	if ok {
		t.Fatal("removed permission must not be enforceable")
	}

	if _, err := a.AddPermission(ctx, "janitor", ResourceDelivery, ActionCreate); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("unknown role err = %v, want ErrInvalidArgs", err)
	}
}
