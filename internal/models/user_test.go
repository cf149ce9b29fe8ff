package models

import (
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"manager role", RoleManager, true},
		{"operator role", RoleOperator, true},
		{"viewer role", RoleViewer, true},
		{"invalid role", "invalid", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		action   string
		expected bool
	}{
		// Admin can do everything
		{"admin can run batch", RoleAdmin, ActionRunBatch, true},
		{"admin can classify", RoleAdmin, ActionClassifyVehicle, true},

		// Manager can do everything except batch jobs
		{"manager cannot run batch", RoleManager, ActionRunBatch, false},
		{"manager can predict", RoleManager, ActionPredictMaintenance, true},
		{"manager can view statistics", RoleManager, ActionViewStatistics, true},

		// Operator works on single vehicles
		{"operator can classify", RoleOperator, ActionClassifyVehicle, true},
		{"operator can update maintenance", RoleOperator, ActionUpdateMaintenance, true},
		{"operator cannot run batch", RoleOperator, ActionRunBatch, false},
		{"operator cannot view statistics", RoleOperator, ActionViewStatistics, false},

		// Viewer is read-only
		{"viewer can view vehicles", RoleViewer, ActionViewVehicles, true},
		{"viewer can view maintenance", RoleViewer, ActionViewMaintenance, true},
		{"viewer cannot predict", RoleViewer, ActionPredictMaintenance, false},
		{"viewer cannot update maintenance", RoleViewer, ActionUpdateMaintenance, false},
		{"viewer cannot view statistics", RoleViewer, ActionViewStatistics, false},

		{"unknown role has nothing", Role("ghost"), ActionViewVehicles, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HasPermission(tt.role, tt.action)
			if result != tt.expected {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.action, result, tt.expected)
			}
		})
	}
}
