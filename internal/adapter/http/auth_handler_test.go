package http_test

import (
	"context"
	nethttp "net/http"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apihttp "github.com/rfmoraes/accounts-api-go/internal/adapter/http"
	"github.com/rfmoraes/accounts-api-go/internal/adapter/database"
	"github.com/rfmoraes/accounts-api-go/internal/app/identity"
	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"github.com/rfmoraes/accounts-api-go/internal/infra/middleware"
	"github.com/rfmoraes/accounts-api-go/internal/testutils"
	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret-key-with-32-bytes-ok!"

// captureNotifier guarda o último código despachado por propósito
type captureNotifier struct {
	mu         sync.Mutex
	activation string
	reset      string
}

func (n *captureNotifier) SendActivationNotice(ctx context.Context, email, phone, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activation = code
}

func (n *captureNotifier) SendNewActivationNotice(ctx context.Context, email, phone, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activation = code
}

func (n *captureNotifier) SendResetNotice(ctx context.Context, email, phone, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset = code
}

func (n *captureNotifier) lastActivation() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activation
}

func (n *captureNotifier) lastReset() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset
}

func setupAPI(t *testing.T) (*gin.Engine, *captureNotifier) {
	logger := testutils.TestLogger(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.UserEntity{}, &model.VerificationCode{}))

	keyManager, err := security.NewKeyManager([]byte(testSecret), logger)
	require.NoError(t, err)

	notifier := &captureNotifier{}
	service := identity.NewService(
		database.NewUserRepository(db, logger),
		database.NewCodeRepository(db, time.Hour, 6, logger),
		notifier,
		security.NewHasher(4),
		keyManager,
		time.Hour,
		nil,
		nil,
		logger,
	)

	authHandler := apihttp.NewAuthHandler(service, logger)
	userHandler := apihttp.NewUserHandler(service, newTestPhotoStorage(t), 5, logger)
	authMiddleware := middleware.NewAuthMiddleware(keyManager, logger)

	router := testutils.SetupTestRouter(t)
	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/activate", authHandler.Activate)
		auth.POST("/activate/regenerate", authHandler.RegenerateActivationCode)
		auth.POST("/password/forgot", authHandler.ForgotPassword)
		auth.POST("/password/verify", authHandler.VerifyResetCode)
		auth.POST("/password/reset", authHandler.ResetPassword)
	}

	users := router.Group("/users")
	users.Use(authMiddleware.Authenticate)
	users.Use(authMiddleware.RequireRoles(model.RoleUser, model.RoleAdmin, model.RoleOwner))
	{
		users.GET("/me", userHandler.GetProfile)
		users.PUT("/me", userHandler.UpdateProfile)
	}

	return router, notifier
}

func registerPayload() map[string]string {
	return map[string]string{
		"email":     "ana@example.com",
		"password":  "senha-segura",
		"cpf":       "12345678901",
		"firstName": "Ana",
		"lastName":  "Silva",
		"phone":     "11999990000",
	}
}

func TestRegisterActivateLoginFlow(t *testing.T) {
	router, notifier := setupAPI(t)

	// Registro cria a conta pendente
	resp := testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/register", registerPayload(), nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusCreated)

	var created model.User
	testutils.ParseResponse(t, resp, &created)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, model.RoleUser, created.Role)

	code := notifier.lastActivation()
	require.NotEmpty(t, code, "registro deve despachar o código de ativação")

	// Código errado não ativa
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/activate", map[string]string{
		"email": "ana@example.com",
		"code":  "000000",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusUnauthorized)

	// Código correto ativa
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/activate", map[string]string{
		"email": "ana@example.com",
		"code":  code,
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	var activated model.User
	testutils.ParseResponse(t, resp, &activated)
	assert.Equal(t, model.StatusActive, activated.Status)

	// Reuso do mesmo código falha: uso único
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/activate", map[string]string{
		"email": "ana@example.com",
		"code":  code,
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusUnauthorized)

	// Login devolve token utilizável
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "senha-segura",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	var login map[string]string
	testutils.ParseResponse(t, resp, &login)
	require.NotEmpty(t, login["token"])

	// O token dá acesso ao próprio perfil
	resp = testutils.MakeRequest(t, router, nethttp.MethodGet, "/users/me", nil, map[string]string{
		"Authorization": "Bearer " + login["token"],
	})
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	var profile model.User
	testutils.ParseResponse(t, resp, &profile)
	assert.Equal(t, "ana@example.com", profile.Email)
}

func TestRegisterValidation(t *testing.T) {
	router, _ := setupAPI(t)

	t.Run("missing fields fail with 400", func(t *testing.T) {
		resp := testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/register", map[string]string{
			"email": "ana@example.com",
		}, nil)
		testutils.RequireHTTPStatus(t, resp, nethttp.StatusBadRequest)
	})

	t.Run("short password fails with 400", func(t *testing.T) {
		payload := registerPayload()
		payload["password"] = "curta"
		resp := testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/register", payload, nil)
		testutils.RequireHTTPStatus(t, resp, nethttp.StatusBadRequest)
	})

	t.Run("duplicate email fails with 409", func(t *testing.T) {
		resp := testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/register", registerPayload(), nil)
		testutils.RequireHTTPStatus(t, resp, nethttp.StatusCreated)

		payload := registerPayload()
		payload["cpf"] = "98765432100"
		payload["phone"] = "11911112222"
		resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/register", payload, nil)
		testutils.RequireHTTPStatus(t, resp, nethttp.StatusConflict)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	router, notifier := setupAPI(t)

	resp := testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/register", registerPayload(), nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusCreated)

	// Solicita código de redefinição
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/password/forgot", map[string]string{
		"email": "ana@example.com",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	code := notifier.lastReset()
	require.NotEmpty(t, code)

	// Pré-verificação não consome o código
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/password/verify", map[string]string{
		"email": "ana@example.com",
		"code":  code,
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	// Redefine a senha consumindo o código
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/password/reset", map[string]string{
		"email":    "ana@example.com",
		"code":     code,
		"password": "senha-novinha",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	// Código consumido não vale para uma segunda redefinição
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/password/reset", map[string]string{
		"email":    "ana@example.com",
		"code":     code,
		"password": "outra-senha-x",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusUnauthorized)

	// A senha antiga deixou de funcionar, a nova autentica
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "senha-segura",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusUnauthorized)

	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "senha-novinha",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)
}

func TestRegenerateActivationCode(t *testing.T) {
	router, notifier := setupAPI(t)

	resp := testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/register", registerPayload(), nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusCreated)

	first := notifier.lastActivation()

	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/activate/regenerate", map[string]string{
		"email": "ana@example.com",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	second := notifier.lastActivation()
	require.NotEmpty(t, second)

	// O código antigo foi substituído
	if first != second {
		resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/activate", map[string]string{
			"email": "ana@example.com",
			"code":  first,
		}, nil)
		testutils.RequireHTTPStatus(t, resp, nethttp.StatusUnauthorized)
	}

	// O novo ativa normalmente
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/activate", map[string]string{
		"email": "ana@example.com",
		"code":  second,
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusOK)

	// Conta ativa não pode pedir novo código de ativação
	resp = testutils.MakeRequest(t, router, nethttp.MethodPost, "/auth/activate/regenerate", map[string]string{
		"email": "ana@example.com",
	}, nil)
	testutils.RequireHTTPStatus(t, resp, nethttp.StatusForbidden)
}
