package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyGenerator(t *testing.T) {
	t.Parallel()

	gen, err := NewKeyGenerator(6)
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		key := gen.NewKey()
		require.Len(t, key, 6)
		for _, r := range key {
			assert.True(t, strings.ContainsRune(StorageKeyAlphabet, r), "unexpected rune %q", r)
		}
		seen[key] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestKeyGeneratorFunc(t *testing.T) {
	t.Parallel()

	var g KeyGenerator = KeyGeneratorFunc(func() string { return "ABC123" })
	assert.Equal(t, "ABC123", g.NewKey())
}
