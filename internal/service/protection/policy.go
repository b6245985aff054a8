package protection

import (
	"fmt"
	"sort"

	"github.com/ataa-platform/ataa_backend/config"
)

// Protection levels. Lower is more sensitive.
const (
	LevelMostSensitive  = 1
	LevelLeastSensitive = 4
)

// FieldRule is one row of the field-protection table. Rules are immutable
// configuration; the policy hands out copies.
type FieldRule struct {
	FieldName        string `json:"field_name"`
	Level            int    `json:"level"`
	RequiresOTP      bool   `json:"requires_otp"`
	RequiresApproval bool   `json:"requires_approval"`
}

// DefaultRule is what unknown field names resolve to: least sensitive, open
// edit. Adding a new form field therefore never silently denies (or gates)
// access by omission.
func DefaultRule(field string) FieldRule {
	return FieldRule{FieldName: field, Level: LevelLeastSensitive}
}

// Resolution is the outcome of a policy lookup for one (field, role) pair.
type Resolution struct {
	FieldRule
	// CanEdit is false when the role's clearance does not reach the
	// field's level. The OTP/approval flags only apply to actors who
	// already clear the base level.
	CanEdit bool `json:"can_edit"`
	// RoleClearance is the most sensitive level the role may edit.
	RoleClearance int `json:"role_clearance"`
}

// Policy resolves field names to protection rules. It is a pure lookup built
// once from injected configuration; it has no side effects and is safe for
// concurrent use.
type Policy struct {
	rules     map[string]FieldRule
	clearance map[string]int
}

// NewPolicy validates and freezes the configured table.
func NewPolicy(cfg config.ProtectionConfig) (*Policy, error) {
	p := &Policy{
		rules:     make(map[string]FieldRule, len(cfg.Fields)),
		clearance: make(map[string]int, len(cfg.RoleClearance)),
	}

	for name, rc := range cfg.Fields {
		if rc.Level < LevelMostSensitive || rc.Level > LevelLeastSensitive {
			return nil, fmt.Errorf("protection policy: field %q has level %d, want %d..%d",
				name, rc.Level, LevelMostSensitive, LevelLeastSensitive)
		}
		p.rules[name] = FieldRule{
			FieldName:        name,
			Level:            rc.Level,
			RequiresOTP:      rc.RequiresOTP,
			RequiresApproval: rc.RequiresApproval,
		}
	}

	for role, lvl := range cfg.RoleClearance {
		if lvl < LevelMostSensitive || lvl > LevelLeastSensitive {
			return nil, fmt.Errorf("protection policy: role %q has clearance %d, want %d..%d",
				role, lvl, LevelMostSensitive, LevelLeastSensitive)
		}
		p.clearance[role] = lvl
	}

	return p, nil
}

// Rule returns the configured rule for field, or the open default.
// The lookup is total: every field name resolves to exactly one rule.
func (p *Policy) Rule(field string) FieldRule {
	if r, ok := p.rules[field]; ok {
		return r
	}
	return DefaultRule(field)
}

// Clearance returns the most sensitive level role may edit. Unknown roles get
// the least-sensitive clearance, so an unconfigured role can still edit open
// fields but nothing guarded.
func (p *Policy) Clearance(role string) int {
	if lvl, ok := p.clearance[role]; ok {
		return lvl
	}
	return LevelLeastSensitive
}

// Resolve answers, for one actor role and one canonical field name, whether
// the edit may happen at all and which step-up it needs.
func (p *Policy) Resolve(field, role string) Resolution {
	rule := p.Rule(field)
	clearance := p.Clearance(role)
	return Resolution{
		FieldRule:     rule,
		CanEdit:       clearance <= rule.Level,
		RoleClearance: clearance,
	}
}

// Fields lists the configured field names, sorted, for diagnostics.
func (p *Policy) Fields() []string {
	out := make([]string, 0, len(p.rules))
	for name := range p.rules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
