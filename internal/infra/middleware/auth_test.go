package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rfmoraes/accounts-api-go/internal/infra/middleware"
	"github.com/rfmoraes/accounts-api-go/internal/testutils"
	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-32-bytes-ok!"

func setupAuthRouter(t *testing.T, roles ...string) (*gin.Engine, *security.KeyManager) {
	logger := testutils.TestLogger(t)

	keyManager, err := security.NewKeyManager([]byte(testSecret), logger)
	require.NoError(t, err)

	authMiddleware := middleware.NewAuthMiddleware(keyManager, logger)

	router := testutils.SetupTestRouter(t)
	group := router.Group("/protected")
	group.Use(authMiddleware.Authenticate)
	if len(roles) > 0 {
		group.Use(authMiddleware.RequireRoles(roles...))
	}
	group.GET("", func(c *gin.Context) {
		claims, ok := middleware.ClaimsFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID, "role": claims.Role})
	})

	return router, keyManager
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAuthenticate(t *testing.T) {
	t.Run("valid token passes and populates claims", func(t *testing.T) {
		router, km := setupAuthRouter(t)

		token, err := km.GenerateToken("user-1", "ana@example.com", "user", time.Hour)
		require.NoError(t, err)

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/protected", nil, bearer(token))
		testutils.RequireHTTPStatus(t, resp, http.StatusOK)

		var body map[string]string
		testutils.ParseResponse(t, resp, &body)
		require.Equal(t, "user-1", body["user_id"])
		require.Equal(t, "user", body["role"])
	})

	t.Run("missing header fails with 401", func(t *testing.T) {
		router, _ := setupAuthRouter(t)

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/protected", nil, nil)
		testutils.RequireHTTPStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("malformed header fails with 401", func(t *testing.T) {
		router, km := setupAuthRouter(t)

		token, err := km.GenerateToken("user-1", "ana@example.com", "user", time.Hour)
		require.NoError(t, err)

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/protected", nil,
			map[string]string{"Authorization": token})
		testutils.RequireHTTPStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("expired token fails with 401", func(t *testing.T) {
		router, km := setupAuthRouter(t)

		token, err := km.GenerateToken("user-1", "ana@example.com", "user", -time.Minute)
		require.NoError(t, err)

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/protected", nil, bearer(token))
		testutils.RequireHTTPStatus(t, resp, http.StatusUnauthorized)
	})
}

func TestRequireRoles(t *testing.T) {
	t.Run("allowed role passes", func(t *testing.T) {
		router, km := setupAuthRouter(t, "admin", "owner")

		token, err := km.GenerateToken("admin-1", "admin@example.com", "admin", time.Hour)
		require.NoError(t, err)

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/protected", nil, bearer(token))
		testutils.RequireHTTPStatus(t, resp, http.StatusOK)
	})

	t.Run("role outside the list fails with 403", func(t *testing.T) {
		router, km := setupAuthRouter(t, "admin", "owner")

		token, err := km.GenerateToken("user-1", "ana@example.com", "user", time.Hour)
		require.NoError(t, err)

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/protected", nil, bearer(token))
		testutils.RequireHTTPStatus(t, resp, http.StatusForbidden)
	})

	t.Run("unknown role fails closed", func(t *testing.T) {
		router, km := setupAuthRouter(t, "admin")

		token, err := km.GenerateToken("user-1", "ana@example.com", "superuser", time.Hour)
		require.NoError(t, err)

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/protected", nil, bearer(token))
		testutils.RequireHTTPStatus(t, resp, http.StatusForbidden)
	})

	t.Run("gate without authentication fails closed", func(t *testing.T) {
		logger := testutils.TestLogger(t)
		keyManager, err := security.NewKeyManager([]byte(testSecret), logger)
		require.NoError(t, err)

		authMiddleware := middleware.NewAuthMiddleware(keyManager, logger)

		// RequireRoles montado sem Authenticate antes: nenhuma claim no
		// contexto, acesso negado
		router := testutils.SetupTestRouter(t)
		router.GET("/misconfigured", authMiddleware.RequireRoles("admin"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		resp := testutils.MakeRequest(t, router, http.MethodGet, "/misconfigured", nil, nil)
		testutils.RequireHTTPStatus(t, resp, http.StatusForbidden)
	})
}
