package security

import (
	"os"

	"github.com/rfmoraes/accounts-api-go/pkg/config"
)

// GetJWTSecret obtém o segredo JWT de diferentes fontes na seguinte ordem:
// 1. Variável de ambiente JWT_SECRET_KEY
// 2. Variável de ambiente ACC_AUTH_JWTSECRET
// 3. Arquivo de configuração
func GetJWTSecret() []byte {
	// Primeiro, tentar obter da variável de ambiente
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret != "" {
		return []byte(secret)
	}

	// Segundo, tentar obter da variável específica ACC_AUTH_JWTSECRET
	secret = os.Getenv("ACC_AUTH_JWTSECRET")
	if secret != "" {
		return []byte(secret)
	}

	// Terceiro, obter da configuração
	cfg, err := config.LoadConfig("./config")
	if err == nil && cfg.Auth.JWTSecret != "" {
		return []byte(cfg.Auth.JWTSecret)
	}

	return nil
}
