package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher()

	digest, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", digest)

	require.True(t, h.Verify("correct horse battery staple", digest))
	require.False(t, h.Verify("wrong password", digest))
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := NewHasher()

	require.False(t, h.Verify("anything", ""))
	require.False(t, h.Verify("anything", "not-a-bcrypt-digest"))
}

func TestHashesAreSalted(t *testing.T) {
	h := NewHasher()

	first, err := h.Hash("same password")
	require.NoError(t, err)
	second, err := h.Hash("same password")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, h.Verify("same password", first))
	require.True(t, h.Verify("same password", second))
}
