package security_test

import (
	"testing"

	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_HashPassword(t *testing.T) {
	hasher := security.NewHasher(4)

	t.Run("hash verifies against original password", func(t *testing.T) {
		hash, err := hasher.HashPassword("senha-segura")
		require.NoError(t, err)
		assert.NotEqual(t, "senha-segura", hash)
		assert.True(t, hasher.VerifyPassword("senha-segura", hash))
	})

	t.Run("wrong password does not verify", func(t *testing.T) {
		hash, err := hasher.HashPassword("senha-segura")
		require.NoError(t, err)
		assert.False(t, hasher.VerifyPassword("senha-errada", hash))
	})

	t.Run("same password yields different hashes", func(t *testing.T) {
		first, err := hasher.HashPassword("senha-segura")
		require.NoError(t, err)
		second, err := hasher.HashPassword("senha-segura")
		require.NoError(t, err)
		assert.NotEqual(t, first, second, "o salt deve variar entre hashes")
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := hasher.HashPassword("")
		assert.ErrorIs(t, err, security.ErrEmptyPassword)
	})

	t.Run("out of range cost falls back to default", func(t *testing.T) {
		h := security.NewHasher(99)
		hash, err := h.HashPassword("senha-segura")
		require.NoError(t, err)
		assert.True(t, h.VerifyPassword("senha-segura", hash))
	})
}

func TestHasher_VerifyPassword(t *testing.T) {
	hasher := security.NewHasher(4)

	t.Run("malformed hash does not verify", func(t *testing.T) {
		assert.False(t, hasher.VerifyPassword("senha", "hash-invalido"))
	})

	t.Run("empty hash does not verify", func(t *testing.T) {
		assert.False(t, hasher.VerifyPassword("senha", ""))
	})
}
