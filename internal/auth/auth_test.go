package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(testSecret, time.Hour)
	require.NoError(t, err)
	return service
}

func testUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		TenantID: "acme",
		Username: "testuser",
		Role:     models.RoleManager,
	}
}

func TestNewService(t *testing.T) {
	service, err := NewService(testSecret, 0)
	assert.NoError(t, err)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	_, err = NewService("", time.Hour)
	assert.Error(t, err)
}

func TestService_HashPassword(t *testing.T) {
	service := newTestService(t)

	password := "testpassword123"
	hash, err := service.HashPassword(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.True(t, service.CheckPassword(password, hash))
	assert.False(t, service.CheckPassword("wrongpassword", hash))
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)
	user := testUser()

	token, err := service.GenerateToken(user)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "acme", claims.TenantID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, user.Role, claims.Role)
	assert.Equal(t, user.ID, claims.UserObjectID())

	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	other, err := NewService("another-secret", time.Hour)
	require.NoError(t, err)
	token, err := other.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = newTestService(t).ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service := newTestService(t)
	service.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := service.GenerateToken(testUser())
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_MissingClaims(t *testing.T) {
	service := newTestService(t)
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"user_id":   primitive.NewObjectID().Hex(),
			"tenant_id": "acme",
			"username":  "u",
			"role":      "manager",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}
	}
	tests := []struct {
		name   string
		mutate func(c jwt.MapClaims)
	}{
		{"no tenant", func(c jwt.MapClaims) { delete(c, "tenant_id") }},
		{"empty tenant", func(c jwt.MapClaims) { c["tenant_id"] = "" }},
		{"unknown role", func(c jwt.MapClaims) { c["role"] = "superuser" }},
		{"no user", func(c jwt.MapClaims) { delete(c, "user_id") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := base()
			tt.mutate(claims)
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			require.NoError(t, err)

			_, err = service.ValidateToken(signed)
			assert.Equal(t, ErrInvalidToken, err)
		})
	}
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := newTestService(t)

	extracted, err := service.ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	for _, header := range []string{"", "InvalidFormat", "Bearer ", "Basic abc"} {
		_, err = service.ExtractTokenFromHeader(header)
		assert.Equal(t, ErrInvalidToken, err, header)
	}
}

func TestService_ValidatePassword(t *testing.T) {
	service := newTestService(t)

	assert.NoError(t, service.ValidatePassword("validpassword123"))

	err := service.ValidatePassword("short")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")
}

func TestService_GenerateRefreshToken(t *testing.T) {
	service := newTestService(t)
	a, err := service.GenerateRefreshToken()
	require.NoError(t, err)
	b, err := service.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
