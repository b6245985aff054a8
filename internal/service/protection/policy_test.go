package protection

import (
	"errors"
	"testing"

	"github.com/ataa-platform/ataa_backend/config"
)

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(config.ProtectionConfig{
		Fields: map[string]config.FieldRuleConfig{
			"national_id":  {Level: 1, RequiresOTP: true, RequiresApproval: true},
			"phone_number": {Level: 2, RequiresOTP: true},
			"bank_account": {Level: 2, RequiresOTP: true},
			"address":      {Level: 3},
		},
		RoleClearance: map[string]int{
			"admin":        1,
			"case_manager": 2,
			"volunteer":    3,
		},
	})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

func TestPolicyRuleIsTotal(t *testing.T) {
	p := testPolicy(t)

	r := p.Rule("nickname")
	if r.Level != LevelLeastSensitive {
		t.Fatalf("unknown field level = %d, want %d", r.Level, LevelLeastSensitive)
	}
	if r.RequiresOTP || r.RequiresApproval {
		t.Fatal("unknown field must be open")
	}

	r = p.Rule("national_id")
	if r.Level != 1 || !r.RequiresOTP || !r.RequiresApproval {
		t.Fatalf("configured field rule not honored: %+v", r)
	}
}

func TestPolicyClearanceDefaultsToLeastSensitive(t *testing.T) {
	p := testPolicy(t)
	if got := p.Clearance("intern"); got != LevelLeastSensitive {
		t.Fatalf("unknown role clearance = %d, want %d", got, LevelLeastSensitive)
	}
	if got := p.Clearance("admin"); got != 1 {
		t.Fatalf("admin clearance = %d, want 1", got)
	}
}

func TestPolicyResolve(t *testing.T) {
	p := testPolicy(t)

	tests := []struct {
		name    string
		field   string
		role    string
		canEdit bool
	}{
		{"admin can edit most sensitive", "national_id", "admin", true},
		{"case manager blocked from level 1", "national_id", "case_manager", false},
		{"case manager at own level", "phone_number", "case_manager", true},
		{"volunteer blocked from level 2", "bank_account", "volunteer", false},
		{"volunteer at level 3", "address", "volunteer", true},
		{"unknown role edits open field", "nickname", "intern", true},
		{"unknown role blocked from protected field", "phone_number", "intern", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Resolve(tt.field, tt.role)
			if res.CanEdit != tt.canEdit {
				t.Fatalf("CanEdit = %v, want %v (clearance %d, level %d)",
					res.CanEdit, tt.canEdit, res.RoleClearance, res.Level)
			}
		})
	}
}

func TestNewPolicyRejectsBadLevels(t *testing.T) {
	_, err := NewPolicy(config.ProtectionConfig{
		Fields: map[string]config.FieldRuleConfig{"x": {Level: 0}},
	})
	if err == nil {
		t.Fatal("expected error for level 0")
	}
	_, err = NewPolicy(config.ProtectionConfig{
		RoleClearance: map[string]int{"r": 5},
	})
	if err == nil {
		t.Fatal("expected error for clearance 5")
	}
}

func TestDeniedErrorNamesLevel(t *testing.T) {
	var err error = &DeniedError{Field: "national_id", Role: "volunteer", RequiredLevel: 1}
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatal("errors.As failed")
	}
	if denied.RequiredLevel != 1 {
		t.Fatalf("RequiredLevel = %d", denied.RequiredLevel)
	}
}
