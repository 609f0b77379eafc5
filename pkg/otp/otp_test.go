package otp

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := Generate()
		require.Len(t, code, 4)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		seen[Generate()] = struct{}{}
	}
	// 200 draws from a 9000-value space collide occasionally but must not
	// collapse to a handful of values
	assert.Greater(t, len(seen), 150)
}
