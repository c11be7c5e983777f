package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("my-secret-password")
	require.NoError(t, err)

	assert.NotEqual(t, "my-secret-password", hash)
	assert.Contains(t, hash, "$2a$")

	// Hashing twice must not produce the same value
	again, err := HashPassword("my-secret-password")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("my-secret-password")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "my-secret-password"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong-password"), ErrPasswordMismatch)
	assert.ErrorIs(t, VerifyPassword("not-a-hash", "my-secret-password"), ErrPasswordMismatch)
}
