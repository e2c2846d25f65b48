package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Monotonic(t *testing.T) {
	g, err := New(7)
	require.NoError(t, err)

	prev := g.Next()
	for i := 0; i < 1000; i++ {
		id := g.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNew_MasksNodeID(t *testing.T) {
	g, err := New(1024 + 3)
	require.NoError(t, err)
	assert.NotZero(t, g.Next())
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
