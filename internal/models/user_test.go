package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
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

func TestUser_HasPermission(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	manager := &User{Role: RoleManager}
	operator := &User{Role: RoleOperator}
	viewer := &User{Role: RoleViewer}

	tests := []struct {
		name     string
		user     *User
		action   string
		expected bool
	}{
		{"admin can manage users", admin, "manage_users", true},
		{"admin can manage maintenance", admin, "manage_maintenance", true},

		{"manager cannot delete user", manager, "delete_user", false},
		{"manager can manage inventory", manager, "manage_inventory", true},
		{"manager can manage maintenance", manager, "manage_maintenance", true},

		{"operator can create maintenance", operator, "create_maintenance", true},
		{"operator can comment maintenance", operator, "comment_maintenance", true},
		{"operator can view inventory", operator, "view_inventory", true},
		{"operator cannot manage inventory", operator, "manage_inventory", false},
		{"operator cannot manage maintenance", operator, "manage_maintenance", false},

		{"viewer can view costs", viewer, "view_costs", true},
		{"viewer cannot create maintenance", viewer, "create_maintenance", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.user.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("User with role %s HasPermission(%s) = %v, want %v",
					tt.user.Role, tt.action, result, tt.expected)
			}
		})
	}
}

func TestUser_FullName(t *testing.T) {
	if got := (&User{Username: "jdoe", FirstName: "Jane", LastName: "Doe"}).FullName(); got != "Jane Doe" {
		t.Errorf("FullName() = %q", got)
	}
	if got := (&User{Username: "jdoe", FirstName: "Jane"}).FullName(); got != "Jane" {
		t.Errorf("FullName() = %q", got)
	}
	if got := (&User{Username: "jdoe"}).FullName(); got != "jdoe" {
		t.Errorf("FullName() = %q", got)
	}
}

func TestClaims_IsManager(t *testing.T) {
	for role, want := range map[Role]bool{
		RoleAdmin:    true,
		RoleManager:  true,
		RoleOperator: false,
		RoleViewer:   false,
	} {
		c := &Claims{Role: role}
		if c.IsManager() != want {
			t.Errorf("Claims{Role: %s}.IsManager() = %v, want %v", role, !want, want)
		}
	}
}

func TestClaims_UserObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	c := &Claims{UserID: id.Hex()}
	if c.UserObjectID() != id {
		t.Errorf("UserObjectID() = %s, want %s", c.UserObjectID().Hex(), id.Hex())
	}
	bad := &Claims{UserID: "not-hex"}
	if !bad.UserObjectID().IsZero() {
		t.Error("expected zero ObjectID for malformed id")
	}
}

func TestRole_CanGrant(t *testing.T) {
	tests := []struct {
		name     string
		holder   Role
		target   Role
		expected bool
	}{
		{"admin grants admin", RoleAdmin, RoleAdmin, true},
		{"admin grants viewer", RoleAdmin, RoleViewer, true},
		{"manager grants manager", RoleManager, RoleManager, true},
		{"manager grants operator", RoleManager, RoleOperator, true},
		{"manager cannot grant admin", RoleManager, RoleAdmin, false},
		{"operator cannot grant manager", RoleOperator, RoleManager, false},
		{"unknown target", RoleAdmin, "superuser", false},
		{"unknown holder", "", RoleViewer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.holder.CanGrant(tt.target); got != tt.expected {
				t.Errorf("%s.CanGrant(%s) = %v, want %v", tt.holder, tt.target, got, tt.expected)
			}
		})
	}
}
