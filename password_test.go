package claimlink

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	password, err := GeneratePassword()
	require.NoError(t, err)

	assert.Len(t, password, PasswordByteLength*2)
	_, err = hex.DecodeString(password)
	assert.NoError(t, err, "password should be hex")
}

func TestGeneratePasswordIsFreshPerCall(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		password, err := GeneratePassword()
		require.NoError(t, err)
		assert.False(t, seen[password], "password reused across attempts")
		seen[password] = true
	}
}

func TestClaimAddressFromPassword(t *testing.T) {
	t.Parallel()

	addr1, err := ClaimAddressFromPassword("deadbeefdeadbeefdeadbeefdeadbeef")
	require.NoError(t, err)
	addr2, err := ClaimAddressFromPassword("deadbeefdeadbeefdeadbeefdeadbeef")
	require.NoError(t, err)

	// Deterministic: the claiming counterpart rebuilds the same keypair
	// from the link's password alone.
	assert.Equal(t, addr1, addr2)
	assert.True(t, strings.HasPrefix(addr1, "0x"))
	assert.Len(t, addr1, 42)

	addr3, err := ClaimAddressFromPassword("another-password")
	require.NoError(t, err)
	assert.NotEqual(t, addr1, addr3)
}
