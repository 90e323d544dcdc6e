package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword é retornado ao tentar processar uma senha vazia
var ErrEmptyPassword = errors.New("senha não pode ser vazia")

// Hasher encapsula o hashing de senhas com bcrypt. O fator de trabalho
// é configurável; valores fora da faixa do bcrypt caem no padrão.
type Hasher struct {
	cost int
}

// NewHasher cria um novo Hasher com o fator de trabalho informado
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// HashPassword gera o hash bcrypt (salted) da senha em texto claro.
// Senha vazia é rejeitada.
func (h *Hasher) HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashed), nil
}

// VerifyPassword compara a senha em texto claro com o hash armazenado.
// A comparação do bcrypt não vaza a posição do primeiro byte divergente.
func (h *Hasher) VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
