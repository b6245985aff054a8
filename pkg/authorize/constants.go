package authorize

type Action string
type Resource string
type Role string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// RBAC-specific actions
	ActionApprove Action = "approve"

	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {},
	ActionList: {}, ActionApprove: {},
}

const (
	WildcardResource Resource = "*"

	ResourceUser         Resource = "user"
	ResourceBeneficiary  Resource = "beneficiary"
	ResourceOrganization Resource = "organization"
	ResourceDelivery     Resource = "delivery"
	ResourceApproval     Resource = "approval"
	ResourceFieldEdit    Resource = "field_edit"
)

var KnownResources = map[Resource]struct{}{
	ResourceUser: {}, ResourceBeneficiary: {}, ResourceOrganization: {},
	ResourceDelivery: {}, ResourceApproval: {}, ResourceFieldEdit: {},
}

const (
	WildcardRole Role = "*"

	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleCaseManager Role = "case_manager"
	RoleVolunteer   Role = "volunteer"
	RoleOrgManager  Role = "org_manager"
)

var KnownRoles = map[Role]struct{}{
	RoleSuperAdmin: {}, RoleAdmin: {}, RoleCaseManager: {},
	RoleVolunteer: {}, RoleOrgManager: {},
}
