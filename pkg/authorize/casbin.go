package authorize

import (
	"context"
	"errors"
	"fmt"

	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/ataa-platform/ataa_backend/config"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// modelText is a plain RBAC model: roles own (resource, action) permissions,
// with wildcard support on both.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`

// IAuthorization is the only thing services/middleware should depend on.
type IAuthorization interface {
	// Enforce answers: "Is subject allowed to act on object?"
	Enforce(ctx context.Context, subject Role, object Resource, action Action) (bool, error)

	// MustEnforce is convenience for services: return ErrForbidden if not allowed.
	MustEnforce(ctx context.Context, subject Role, object Resource, action Action) error

	AddPermission(ctx context.Context, role Role, object Resource, action Action) (bool, error)
	RemovePermission(ctx context.Context, role Role, object Resource, action Action) (bool, error)

	Raw() *casbin.Enforcer
}

// Authorization is a thin typed wrapper around casbin.Enforcer.
type Authorization struct {
	enforcer        *casbin.Enforcer
	superadminRole  Role
	superadminAllow bool
}

// NewFromConfig builds the enforcer from the central config. When no policy
// file is configured the default permission set is seeded in memory.
func NewFromConfig(cfg config.AuthorizationConfig) (IAuthorization, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("casbin model: %w", err)
	}

	var e *casbin.Enforcer
	if cfg.PolicyPath != "" {
		e, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		e, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	a := &Authorization{
		enforcer:        e,
		superadminRole:  RoleSuperAdmin,
		superadminAllow: cfg.SuperadminBypass,
	}

	if cfg.PolicyPath == "" {
		if err := a.seedDefaults(); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// seedDefaults installs the baseline role permissions used when no external
// policy file is provided.
func (a *Authorization) seedDefaults() error {
	defaults := [][]string{
		{string(RoleAdmin), string(WildcardResource), string(WildcardAction)},

		{string(RoleCaseManager), string(ResourceBeneficiary), string(WildcardAction)},
		{string(RoleCaseManager), string(ResourceOrganization), string(ActionRead)},
		{string(RoleCaseManager), string(ResourceOrganization), string(ActionList)},
		{string(RoleCaseManager), string(ResourceDelivery), string(WildcardAction)},
		{string(RoleCaseManager), string(ResourceFieldEdit), string(ActionCreate)},

		{string(RoleVolunteer), string(ResourceBeneficiary), string(ActionRead)},
		{string(RoleVolunteer), string(ResourceBeneficiary), string(ActionList)},
		{string(RoleVolunteer), string(ResourceBeneficiary), string(ActionUpdate)},
		{string(RoleVolunteer), string(ResourceDelivery), string(ActionRead)},
		{string(RoleVolunteer), string(ResourceDelivery), string(ActionList)},
		{string(RoleVolunteer), string(ResourceFieldEdit), string(ActionCreate)},

		{string(RoleOrgManager), string(ResourceOrganization), string(WildcardAction)},
		{string(RoleOrgManager), string(ResourceDelivery), string(WildcardAction)},

		{string(RoleAdmin), string(ResourceApproval), string(ActionApprove)},
	}
	for _, p := range defaults {
		if _, err := a.enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return fmt.Errorf("seed policy %v: %w", p, err)
		}
	}
	return nil
}

func (a *Authorization) Raw() *casbin.Enforcer { return a.enforcer }

func (a *Authorization) Enforce(ctx context.Context, subject Role, object Resource, action Action) (bool, error) {
	_ = ctx // reserved for tracing/logging later

	if subject == "" {
		return false, fmt.Errorf("%w: subject is empty", ErrInvalidArgs)
	}
	if object == "" {
		return false, fmt.Errorf("%w: object is empty", ErrInvalidArgs)
	}
	if action == "" {
		return false, fmt.Errorf("%w: action is empty", ErrInvalidArgs)
	}

	// Guardrails: ensure you're only using known constants
	if _, ok := KnownResources[object]; !ok && object != WildcardResource {
		return false, fmt.Errorf("%w: unknown resource: %q", ErrInvalidArgs, object)
	}
	if _, ok := KnownActions[action]; !ok && action != WildcardAction {
		return false, fmt.Errorf("%w: unknown action: %q", ErrInvalidArgs, action)
	}

	if a.superadminAllow && subject == a.superadminRole {
		return true, nil
	}

	allowed, err := a.enforcer.Enforce(string(subject), string(object), string(action))
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (a *Authorization) MustEnforce(ctx context.Context, subject Role, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, subject, object, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (a *Authorization) AddPermission(ctx context.Context, role Role, object Resource, action Action) (bool, error) {
	_ = ctx
	if role == "" {
		return false, fmt.Errorf("%w: empty role", ErrInvalidArgs)
	}
	if _, ok := KnownRoles[role]; !ok && role != WildcardRole {
		return false, fmt.Errorf("%w: unknown role: %q", ErrInvalidArgs, role)
	}
	return a.enforcer.AddPolicy(string(role), string(object), string(action))
}

func (a *Authorization) RemovePermission(ctx context.Context, role Role, object Resource, action Action) (bool, error) {
	_ = ctx
	if role == "" {
		return false, fmt.Errorf("%w: empty role", ErrInvalidArgs)
	}
	return a.enforcer.RemovePolicy(string(role), string(object), string(action))
}
