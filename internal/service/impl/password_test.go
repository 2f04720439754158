package impl

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_hashPassword(t *testing.T) {
	hash, err := hashPassword("password")
	require.NoError(t, err)

	parts := strings.SplitN(hash, ":", 2)
	require.Len(t, parts, 2)

	salt, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, salt, saltLen)

	key, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, key, pbkdf2KeyLen)

	// Fresh salt every time.
	hash2, err := hashPassword("password")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
}

func Test_verifyPassword(t *testing.T) {
	hash, err := hashPassword("password")
	require.NoError(t, err)

	assert.True(t, verifyPassword("password", hash))
	assert.False(t, verifyPassword("Password", hash))
	assert.False(t, verifyPassword("", hash))
}

func Test_verifyPassword_malformedHash(t *testing.T) {
	assert.False(t, verifyPassword("password", ""))
	assert.False(t, verifyPassword("password", "no-separator"))
	assert.False(t, verifyPassword("password", "aabb:not-hex"))
}
