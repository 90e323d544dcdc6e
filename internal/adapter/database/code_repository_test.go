package database

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.UserEntity{}, &model.VerificationCode{}))
	return db
}

func newTestCodeRepo(t *testing.T) *CodeRepository {
	return NewCodeRepository(newTestDB(t), time.Hour, 6, zaptest.NewLogger(t))
}

func TestCodeRepository_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues fixed width numeric code with ttl", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		code, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		assert.Len(t, code.Code, 6)
		for _, r := range code.Code {
			assert.True(t, r >= '0' && r <= '9', "código deve ser numérico")
		}
		assert.WithinDuration(t, time.Now().Add(time.Hour), code.ExpiresAt, 5*time.Second)
	})

	t.Run("reissue invalidates the previous code", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		first, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		second, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		count, err := repo.CountLive(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "no máximo um código vivo por par")

		// O primeiro código não é mais aceito, mesmo dentro do TTL
		err = repo.Consume(ctx, "user-1", model.PurposeActivation, first.Code)
		if first.Code != second.Code {
			assert.ErrorIs(t, err, ErrCodeNotFound)
		}
	})

	t.Run("purposes are independent", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		activation, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		_, err = repo.Issue(ctx, "user-1", model.PurposePasswordReset)
		require.NoError(t, err)

		// Emitir código de reset não invalida o de ativação
		require.NoError(t, repo.Consume(ctx, "user-1", model.PurposeActivation, activation.Code))
	})

	t.Run("users are independent", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		codeA, err := repo.Issue(ctx, "user-a", model.PurposeActivation)
		require.NoError(t, err)

		_, err = repo.Issue(ctx, "user-b", model.PurposeActivation)
		require.NoError(t, err)

		require.NoError(t, repo.Consume(ctx, "user-a", model.PurposeActivation, codeA.Code))
	})
}

func TestCodeRepository_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("code is single use", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		code, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		require.NoError(t, repo.Consume(ctx, "user-1", model.PurposeActivation, code.Code))

		err = repo.Consume(ctx, "user-1", model.PurposeActivation, code.Code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		_, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		err = repo.Consume(ctx, "user-1", model.PurposeActivation, "not-a-code")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("consuming with the wrong purpose is rejected", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		code, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		err = repo.Consume(ctx, "user-1", model.PurposePasswordReset, code.Code)
		assert.ErrorIs(t, err, ErrCodeNotFound)

		// O código de ativação permanece vivo
		require.NoError(t, repo.Consume(ctx, "user-1", model.PurposeActivation, code.Code))
	})

	t.Run("expired code is rejected exactly like a wrong one", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		code, err := repo.Issue(ctx, "user-1", model.PurposeActivation)
		require.NoError(t, err)

		// Avança o relógio para além do TTL
		repo.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		err = repo.Consume(ctx, "user-1", model.PurposeActivation, code.Code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})
}

func TestCodeRepository_PeekValid(t *testing.T) {
	ctx := context.Background()

	t.Run("peek does not consume", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		code, err := repo.Issue(ctx, "user-1", model.PurposePasswordReset)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			valid, err := repo.PeekValid(ctx, "user-1", model.PurposePasswordReset, code.Code)
			require.NoError(t, err)
			assert.True(t, valid)
		}

		// Depois das espiadas, o consumo definitivo ainda funciona
		require.NoError(t, repo.Consume(ctx, "user-1", model.PurposePasswordReset, code.Code))
	})

	t.Run("peek on expired code reports invalid", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		code, err := repo.Issue(ctx, "user-1", model.PurposePasswordReset)
		require.NoError(t, err)

		repo.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		valid, err := repo.PeekValid(ctx, "user-1", model.PurposePasswordReset, code.Code)
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestCodeRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only expired codes", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		// Um código já vencido no momento da emissão
		repo.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		_, err := repo.Issue(ctx, "user-old", model.PurposeActivation)
		require.NoError(t, err)

		// E um código vivo
		repo.now = time.Now
		live, err := repo.Issue(ctx, "user-new", model.PurposeActivation)
		require.NoError(t, err)

		removed, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		require.NoError(t, repo.Consume(ctx, "user-new", model.PurposeActivation, live.Code))
	})

	t.Run("count all live ignores expired", func(t *testing.T) {
		repo := newTestCodeRepo(t)

		repo.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		_, err := repo.Issue(ctx, "user-old", model.PurposeActivation)
		require.NoError(t, err)

		repo.now = time.Now
		_, err = repo.Issue(ctx, "user-new", model.PurposeActivation)
		require.NoError(t, err)

		count, err := repo.CountAllLive(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
