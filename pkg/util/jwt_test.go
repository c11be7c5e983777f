package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenPair(t *testing.T) {
	pair, err := GenerateTokenPair(42, "farmer@example.com", "buyer", "test-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
}

func TestValidateToken(t *testing.T) {
	secret := "test-secret"
	pair, err := GenerateTokenPair(42, "farmer@example.com", "buyer", secret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{
			name:   "Valid access token",
			token:  pair.AccessToken,
			secret: secret,
		},
		{
			name:    "Wrong secret",
			token:   pair.AccessToken,
			secret:  "another-secret",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "Garbage token",
			token:   "not.a.token",
			secret:  secret,
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
			} else {
				require.NoError(t, err)
				require.NotNil(t, claims)
				assert.Equal(t, uint(42), claims.UserID)
				assert.Equal(t, "farmer@example.com", claims.Email)
				assert.Equal(t, "buyer", claims.Role)
			}
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	pair, err := GenerateTokenPair(1, "a@example.com", "buyer", "test-secret", -1*time.Minute, -1*time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(pair.AccessToken, "test-secret")
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}
