package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"go.uber.org/zap"
)

const (
	// ContextClaimsKey é a chave das claims do token no contexto gin
	ContextClaimsKey = "claims"
	// ContextUserIDKey é a chave do id do usuário autenticado
	ContextUserIDKey = "user_id"
	// ContextRoleKey é a chave do papel do usuário autenticado
	ContextRoleKey = "role"
)

// AuthMiddleware autentica requisições e aplica o controle de acesso
// por papel. A decisão usa apenas as claims do token: não há consulta
// ao diretório de usuários no caminho da requisição.
type AuthMiddleware struct {
	keyManager *security.KeyManager
	logger     *zap.Logger
}

// NewAuthMiddleware cria uma nova instância do middleware de autenticação
func NewAuthMiddleware(keyManager *security.KeyManager, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		keyManager: keyManager,
		logger:     logger,
	}
}

// Authenticate verifica o token Bearer e popula o contexto com as claims
func (m *AuthMiddleware) Authenticate(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header não fornecido"})
		return
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Formato inválido do token"})
		return
	}

	claims, err := m.keyManager.VerifyToken(tokenString)
	if err != nil {
		m.logger.Debug("token rejeitado", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido ou expirado"})
		return
	}

	c.Set(ContextClaimsKey, claims)
	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextRoleKey, claims.Role)
	c.Next()
}

// RequireRoles restringe a rota aos papéis informados. Falha fechada:
// sem claims no contexto ou com papel fora da lista, a resposta é 403.
func (m *AuthMiddleware) RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		role, exists := c.Get(ContextRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acesso negado"})
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acesso negado"})
			return
		}

		if _, ok := allowed[roleStr]; !ok {
			m.logger.Warn("acesso negado por papel",
				zap.String("role", roleStr),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acesso negado: permissão insuficiente"})
			return
		}

		c.Next()
	}
}

// ClaimsFromContext extrai as claims do token do contexto gin
func ClaimsFromContext(c *gin.Context) (*security.Claims, bool) {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*security.Claims)
	return claims, ok
}
