package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]struct{})
	alnum := regexp.MustCompile(`^[A-Za-z0-9]{12}$`)

	for range 100 {
		id, err := GenerateID()
		require.NoError(t, err)
		assert.Regexp(t, alnum, id)
		seen[id] = struct{}{}
	}

	assert.Len(t, seen, 100)
}
