package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	plain, hash, err := GenerateOpaqueToken()
	require.NoError(t, err)

	assert.Len(t, plain, 64)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, plain, hash)
	assert.Equal(t, HashToken(plain), hash)

	other, _, err := GenerateOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}

func TestHashToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}
