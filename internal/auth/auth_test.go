package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/car-maintenance/internal/models"
)

const testSecret = "test-secret"

func TestNewService(t *testing.T) {
	service, err := NewService(testSecret, 0)
	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.Equal(t, []byte(testSecret), service.jwtSecret)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	_, err = NewService("", time.Hour)
	assert.Error(t, err)
}

func TestService_GenerateToken(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)

	token, err := service.GenerateToken(models.Identity{UserID: "owner-1", Username: "testuser", Role: models.RoleOperator})
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = service.GenerateToken(models.Identity{Username: "nobody", Role: models.RoleViewer})
	assert.Error(t, err)

	_, err = service.GenerateToken(models.Identity{UserID: "owner-1", Role: "superuser"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestService_ValidateToken(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)
	id := models.Identity{UserID: "owner-1", Username: "testuser", Role: models.RoleAdmin}

	token, err := service.GenerateToken(id)
	require.NoError(t, err)

	// Test valid token
	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, id.UserID, claims.UserID)
	assert.Equal(t, id.Username, claims.Username)
	assert.Equal(t, id.Role, claims.Role)

	// Test invalid token
	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	// A full header value is not a token
	_, err = service.ValidateToken("Bearer " + token)
	assert.Equal(t, ErrInvalidToken, err)

	// Test token signed with another secret
	other, _ := NewService("other-secret", time.Hour)
	foreign, _ := other.GenerateToken(id)
	_, err = service.ValidateToken(foreign)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service, _ := NewService(testSecret, time.Minute)
	service.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := service.GenerateToken(models.Identity{UserID: "owner-1", Role: models.RoleViewer})
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_UnknownRole(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "owner-1",
		"role":    "superuser",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)

	// Test valid header
	token := "valid-token"
	header := "Bearer " + token
	extracted, err := service.ExtractTokenFromHeader(header)
	assert.NoError(t, err)
	assert.Equal(t, token, extracted)

	// Test empty header
	_, err = service.ExtractTokenFromHeader("")
	assert.Equal(t, ErrInvalidToken, err)

	// Test invalid format
	_, err = service.ExtractTokenFromHeader("InvalidFormat")
	assert.Equal(t, ErrInvalidToken, err)

	// Test missing token
	_, err = service.ExtractTokenFromHeader("Bearer ")
	assert.Equal(t, ErrInvalidToken, err)

	// Test other scheme
	_, err = service.ExtractTokenFromHeader("Token " + token)
	assert.Equal(t, ErrInvalidToken, err)
}
