package service

import (
	"testing"
	"time"

	"github.com/opas/opas-backend/config"
	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/db"
	"github.com/opas/opas-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTest(t *testing.T) AuthService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	jwtCfg := &config.JWTConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}
	return NewAuthService(repository.NewUserRepository(testDB), jwtCfg)
}

func TestAuthService_Register(t *testing.T) {
	svc := setupAuthTest(t)

	tests := []struct {
		name      string
		input     RegisterInput
		wantField string
	}{
		{
			name:      "Missing email",
			input:     RegisterInput{Password: "password123", Name: "Juan"},
			wantField: "email",
		},
		{
			name:      "Short password",
			input:     RegisterInput{Email: "juan@example.com", Password: "short", Name: "Juan"},
			wantField: "password",
		},
		{
			name:      "Missing name",
			input:     RegisterInput{Email: "juan@example.com", Password: "password123"},
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Register(tt.input)
			assert.Nil(t, user)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Fields, tt.wantField)
		})
	}

	user, err := svc.Register(RegisterInput{
		Email:    "juan@example.com",
		Password: "password123",
		Name:     "Juan Dela Cruz",
		Phone:    "+639171234567",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleBuyer, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = svc.Register(RegisterInput{
		Email:    "juan@example.com",
		Password: "password123",
		Name:     "Someone Else",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	svc := setupAuthTest(t)

	_, err := svc.Register(RegisterInput{
		Email:    "juan@example.com",
		Password: "password123",
		Name:     "Juan Dela Cruz",
	})
	require.NoError(t, err)

	user, pair, err := svc.Login("juan@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", user.Email)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := util.ValidateToken(pair.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(model.RoleBuyer), claims.Role)

	_, _, err = svc.Login("juan@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RefreshTokens(t *testing.T) {
	svc := setupAuthTest(t)

	user, err := svc.Register(RegisterInput{
		Email:    "juan@example.com",
		Password: "password123",
		Name:     "Juan Dela Cruz",
	})
	require.NoError(t, err)

	_, pair, err := svc.Login("juan@example.com", "password123")
	require.NoError(t, err)

	refreshed, err := svc.RefreshTokens(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := util.ValidateToken(refreshed.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.RefreshTokens("not-a-token")
	assert.Error(t, err)
}
