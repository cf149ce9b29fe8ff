package models

// Role represents user roles in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Actions checked by the permission middleware.
const (
	ActionViewVehicles       = "view_vehicles"
	ActionClassifyVehicle    = "classify_vehicle"
	ActionViewMaintenance    = "view_maintenance"
	ActionPredictMaintenance = "predict_maintenance"
	ActionUpdateMaintenance  = "update_maintenance"
	ActionRunBatch           = "run_batch"
	ActionViewStatistics     = "view_statistics"
)

// Identity is an already-authenticated vehicle owner or operator.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role may perform an action
func HasPermission(role Role, action string) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager:
		return action != ActionRunBatch
	case RoleOperator:
		return action == ActionViewVehicles || action == ActionClassifyVehicle ||
			action == ActionViewMaintenance || action == ActionPredictMaintenance ||
			action == ActionUpdateMaintenance
	case RoleViewer:
		return action == ActionViewVehicles || action == ActionViewMaintenance
	default:
		return false
	}
}
