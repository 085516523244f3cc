package ids

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempUsername(t *testing.T) {
	pattern := regexp.MustCompile(`^temp-[a-z2-7]{10}$`)
	seen := make(map[string]struct{})

	for i := 0; i < 200; i++ {
		name, err := TempUsername()
		require.NoError(t, err)
		assert.Regexp(t, pattern, name)
		seen[name] = struct{}{}
	}
	assert.Len(t, seen, 200)
}

func TestValidationCode(t *testing.T) {
	a, err := ValidationCode()
	require.NoError(t, err)
	b, err := ValidationCode()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "/")
}

func TestNew(t *testing.T) {
	assert.NotEqual(t, New(), New())
	assert.Len(t, New(), 27)
}
