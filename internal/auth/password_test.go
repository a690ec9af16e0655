package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

func TestCredentialRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("Admin@123")
	require.NoError(t, err)
	second, err := h.Hash("Admin@123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, digest := range []string{first, second} {
		ok, err := h.Verify("Admin@123", digest)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = h.Verify("admin@123", digest)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestVerifyReportsMalformedDigest(t *testing.T) {
	ok, err := NewBcryptHasher(bcrypt.MinCost).Verify("secret", "plaintext")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestHashRejectsOverlongSecret(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
