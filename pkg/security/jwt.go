package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrInvalidToken indica assinatura inválida, estrutura malformada ou expiração
	ErrInvalidToken = errors.New("token inválido")
	// ErrExpiredToken indica token expirado
	ErrExpiredToken = errors.New("token expirado")
)

// Claims transporta a identidade e o papel embutidos no token
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// KeyManager emite e verifica tokens assinados com chave simétrica.
// Emissor e verificador compartilham o mesmo domínio de confiança,
// portanto HS256 é suficiente.
type KeyManager struct {
	secretKey []byte
	logger    *zap.Logger
}

// NewKeyManager cria um novo gerenciador de chaves JWT
func NewKeyManager(secretKey []byte, logger *zap.Logger) (*KeyManager, error) {
	if len(secretKey) < 32 {
		return nil, errors.New("jwt secret key muito curta")
	}

	return &KeyManager{
		secretKey: secretKey,
		logger:    logger,
	}, nil
}

// GenerateToken gera um token assinado com as claims de identidade
func (km *KeyManager) GenerateToken(userID, email, role string, duration time.Duration) (string, error) {
	expireTime := time.Now().Add(duration)

	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expireTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(km.secretKey)
	if err != nil {
		km.logger.Error("falha ao gerar token JWT", zap.Error(err))
		return "", err
	}

	return tokenString, nil
}

// VerifyToken valida assinatura e expiração e devolve as claims
func (km *KeyManager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verificar o método de assinatura
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
		}
		return km.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		km.logger.Debug("falha ao validar token JWT", zap.Error(err))
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
