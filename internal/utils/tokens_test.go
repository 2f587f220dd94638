package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken(8)
	require.NoError(t, err)
	b, err := NewToken(8)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)

	def, err := NewToken(0)
	require.NoError(t, err)
	assert.Len(t, def, 32)
}
