package authz

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleCustomer is an unprivileged shopper account.
	RoleCustomer Role = "customer"

	// RoleCashier is a point-of-sale operator. No admin area access.
	RoleCashier Role = "cashier"

	// RoleAdmin manages the store: products, categories, coupons, orders,
	// customers, staff.
	RoleAdmin Role = "admin"

	// RoleSuperAdmin has everything admin has plus store ownership duties.
	RoleSuperAdmin Role = "super_admin"
)

// ValidRoles is the closed set of roles a profile may hold.
var ValidRoles = []Role{RoleCustomer, RoleCashier, RoleAdmin, RoleSuperAdmin}

// AdminRoles is the privileged subset whose members may enter the admin area.
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin}

// IsValidRole returns true if the role is a member of the closed enumeration.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the role is in the privileged admin subset.
// This is the coarse check the routing gate applies to admin routes.
func IsAdmin(r Role) bool {
	for _, v := range AdminRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Feature names a managed area of the store.
type Feature string

// Action names an operation within a feature.
type Action string

// Features.
const (
	FeatureOrders     Feature = "orders"
	FeatureCategories Feature = "categories"
	FeatureCoupons    Feature = "coupons"
	FeatureCustomers  Feature = "customers"
	FeatureProducts   Feature = "products"
	FeatureStaff      Feature = "staff"
)

// Actions.
const (
	ActionCreate          Action = "create"
	ActionDelete          Action = "delete"
	ActionEdit            Action = "edit"
	ActionTogglePublished Action = "toggle_published"
	ActionChangeStatus    Action = "change_status"
	ActionPrint           Action = "print"
)

// permissions maps each (feature, action) pair to the roles allowed to
// perform it. This is the single source of truth for the authorisation
// model, consulted identically by the routing gate (coarse) and the client
// identity context (per-affordance). It is read-only at runtime; an absent
// pair denies for every role.
var permissions = map[Feature]map[Action][]Role{
	FeatureOrders: {
		ActionChangeStatus: AdminRoles,
		ActionPrint:        AdminRoles,
	},
	FeatureCategories: {
		ActionCreate:          AdminRoles,
		ActionDelete:          AdminRoles,
		ActionEdit:            AdminRoles,
		ActionTogglePublished: AdminRoles,
	},
	FeatureCoupons: {
		ActionCreate:          AdminRoles,
		ActionDelete:          AdminRoles,
		ActionEdit:            AdminRoles,
		ActionTogglePublished: AdminRoles,
	},
	FeatureCustomers: {
		ActionDelete: AdminRoles,
		ActionEdit:   AdminRoles,
	},
	FeatureProducts: {
		ActionCreate:          AdminRoles,
		ActionDelete:          AdminRoles,
		ActionEdit:            AdminRoles,
		ActionTogglePublished: AdminRoles,
	},
	FeatureStaff: {
		ActionDelete:          AdminRoles,
		ActionEdit:            AdminRoles,
		ActionTogglePublished: AdminRoles,
	},
}

// IsAllowed returns true iff the role is a member of the configured set for
// the (feature, action) pair. Unconfigured pairs deny for every role.
func IsAllowed(feature Feature, action Action, role Role) bool {
	actions, ok := permissions[feature]
	if !ok {
		return false
	}
	roles, ok := actions[action]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// ActionsForFeature returns the configured actions for a feature.
// Returns nil for unknown features.
func ActionsForFeature(feature Feature) []Action {
	actions, ok := permissions[feature]
	if !ok {
		return nil
	}
	result := make([]Action, 0, len(actions))
	for a := range actions {
		result = append(result, a)
	}
	return result
}
