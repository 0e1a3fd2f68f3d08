package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		tok, err := NewSessionToken()
		require.NoError(t, err)
		require.Len(t, tok, 32)
		assert.True(t, ValidSessionToken(tok), tok)
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestValidSessionToken(t *testing.T) {
	assert.True(t, ValidSessionToken("0123456789abcdef0123456789abcdef"))
	assert.False(t, ValidSessionToken(""))
	assert.False(t, ValidSessionToken("0123456789ABCDEF0123456789ABCDEF"))
	assert.False(t, ValidSessionToken("0123456789abcdef0123456789abcde"))
	assert.False(t, ValidSessionToken("../../etc/passwd0123456789abcdef"))
}
