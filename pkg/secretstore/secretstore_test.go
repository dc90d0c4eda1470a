package secretstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := Hash("correct-horse-battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$"))

	require.NoError(t, Verify(hash, "correct-horse-battery"))
	assert.ErrorIs(t, Verify(hash, "wrong-password"), ErrInvalidCredential)
}

func TestHash_DifferentSaltEachTime(t *testing.T) {
	t.Parallel()

	h1, err := Hash("same-password-123")
	require.NoError(t, err)
	h2, err := Hash("same-password-123")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	require.NoError(t, Verify(h1, "same-password-123"))
	require.NoError(t, Verify(h2, "same-password-123"))
}

func TestValidatePassword_Bounds(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("a", MaxPasswordLength+1)), ErrPasswordTooLong)
	assert.NoError(t, ValidatePassword("just-long-enough"))
}

func TestHash_RejectsInvalidPassword(t *testing.T) {
	t.Parallel()

	_, err := Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestVerify_InvalidHashFormat(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Verify("not-a-bcrypt-hash", "anything"), ErrInvalidCredential)
}
