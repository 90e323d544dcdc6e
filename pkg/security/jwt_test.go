package security_test

import (
	"testing"
	"time"

	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-secret-key-with-32-bytes-ok!"

func TestNewKeyManager(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("rejects short secret", func(t *testing.T) {
		_, err := security.NewKeyManager([]byte("curta"), logger)
		require.Error(t, err)
	})

	t.Run("accepts 32 byte secret", func(t *testing.T) {
		_, err := security.NewKeyManager([]byte(testSecret), logger)
		require.NoError(t, err)
	})
}

func TestKeyManager_GenerateAndVerify(t *testing.T) {
	logger := zaptest.NewLogger(t)
	km, err := security.NewKeyManager([]byte(testSecret), logger)
	require.NoError(t, err)

	t.Run("round trip preserves identity claims", func(t *testing.T) {
		token, err := km.GenerateToken("user-1", "ana@example.com", "admin", time.Hour)
		require.NoError(t, err)

		claims, err := km.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "ana@example.com", claims.Email)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "user-1", claims.Subject)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := km.GenerateToken("user-1", "ana@example.com", "user", -time.Minute)
		require.NoError(t, err)

		_, err = km.VerifyToken(token)
		assert.ErrorIs(t, err, security.ErrExpiredToken)
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		other, err := security.NewKeyManager([]byte("another-secret-key-with-32-bytes!"), logger)
		require.NoError(t, err)

		token, err := other.GenerateToken("user-1", "ana@example.com", "user", time.Hour)
		require.NoError(t, err)

		_, err = km.VerifyToken(token)
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := km.VerifyToken("nem.um.token")
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})

	t.Run("tampered role is rejected by the signature", func(t *testing.T) {
		token, err := km.GenerateToken("user-1", "ana@example.com", "user", time.Hour)
		require.NoError(t, err)

		tampered := token[:len(token)-4] + "AAAA"
		_, err = km.VerifyToken(tampered)
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})
}
