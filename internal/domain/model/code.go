package model

import "time"

// Propósitos de um código de verificação. O propósito delimita a
// unicidade e o consumo: um código de ativação nunca vale para reset.
const (
	PurposeActivation    = "activation"
	PurposePasswordReset = "passwordReset"
)

// VerificationCode é um código numérico de uso único vinculado a um
// usuário e um propósito. A linha referencia o usuário mas não o
// possui: o usuário sobrevive ao código.
type VerificationCode struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"not null;index:idx_codes_user_purpose"`
	Code      string    `gorm:"not null;size:10"`
	Purpose   string    `gorm:"not null;size:20;index:idx_codes_user_purpose"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName define o nome da tabela
func (VerificationCode) TableName() string {
	return "verification_codes"
}

// Expired informa se o código já passou da validade no instante dado
func (c *VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
