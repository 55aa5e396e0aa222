package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

func newTestUser() *models.User {
	return &models.User{
		TenantID:     "org-1",
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleManager,
		FirstName:    "Test",
		LastName:     "User",
	}
}

func TestMongoUserCollection_InsertUser(t *testing.T) {
	store := integrationStore(t)
	users := store.Users()

	user := newTestUser()
	err := users.InsertUser(context.Background(), user)
	assert.NoError(t, err)
	assert.False(t, user.ID.IsZero())

	// Verify user was inserted
	foundUser, err := users.FindUserByUsername(context.Background(), "testuser")
	assert.NoError(t, err)
	assert.Equal(t, user.Username, foundUser.Username)
	assert.Equal(t, user.Email, foundUser.Email)
	assert.Equal(t, user.Role, foundUser.Role)
	assert.Equal(t, "org-1", foundUser.TenantID)
	assert.True(t, foundUser.IsActive)
	assert.NotZero(t, foundUser.CreatedAt)

	// Usernames are unique
	dup := newTestUser()
	dup.Email = "other@example.com"
	assert.ErrorIs(t, users.InsertUser(context.Background(), dup), ErrConflict)
}

func TestMongoUserCollection_FindUserByID(t *testing.T) {
	store := integrationStore(t)
	users := store.Users()

	user := newTestUser()
	require.NoError(t, users.InsertUser(context.Background(), user))

	foundUser, err := users.FindUserByID(context.Background(), user.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, user.Username, foundUser.Username)

	// Test with invalid ID
	_, err = users.FindUserByID(context.Background(), "invalid-id")
	assert.Error(t, err)
}

func TestMongoUserCollection_FindUserByEmail(t *testing.T) {
	store := integrationStore(t)
	users := store.Users()

	user := newTestUser()
	require.NoError(t, users.InsertUser(context.Background(), user))

	foundUser, err := users.FindUserByEmail(context.Background(), "test@example.com")
	assert.NoError(t, err)
	assert.Equal(t, user.Username, foundUser.Username)

	_, err = users.FindUserByEmail(context.Background(), "nonexistent@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_FindUsersByRole(t *testing.T) {
	store := integrationStore(t)
	users := store.Users()

	manager := newTestUser()
	require.NoError(t, users.InsertUser(context.Background(), manager))
	driver := &models.User{TenantID: "org-1", Username: "driver", Email: "driver@example.com", Role: models.RoleOperator}
	require.NoError(t, users.InsertUser(context.Background(), driver))
	foreign := &models.User{TenantID: "org-2", Username: "boss", Email: "boss@example.com", Role: models.RoleManager}
	require.NoError(t, users.InsertUser(context.Background(), foreign))

	found, err := users.FindUsersByRole(context.Background(), "org-1", models.RoleManager, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "testuser", found[0].Username)
}

func TestMongoUserCollection_UpdateUser(t *testing.T) {
	store := integrationStore(t)
	users := store.Users()

	user := newTestUser()
	require.NoError(t, users.InsertUser(context.Background(), user))

	updatedUser := *user
	updatedUser.FirstName = "Updated"
	updatedUser.LastName = "Name"

	err := users.UpdateUser(context.Background(), user.ID.Hex(), updatedUser)
	assert.NoError(t, err)

	foundUser, err := users.FindUserByID(context.Background(), user.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, "Updated", foundUser.FirstName)
	assert.Equal(t, "Name", foundUser.LastName)
}

func TestMongoUserCollection_UpdateLastLogin(t *testing.T) {
	store := integrationStore(t)
	users := store.Users()

	user := newTestUser()
	require.NoError(t, users.InsertUser(context.Background(), user))

	err := users.UpdateLastLogin(context.Background(), user.ID.Hex())
	assert.NoError(t, err)

	updatedUser, err := users.FindUserByID(context.Background(), user.ID.Hex())
	assert.NoError(t, err)
	assert.NotNil(t, updatedUser.LastLogin)
}
