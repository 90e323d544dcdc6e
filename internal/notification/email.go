package notification

import (
	"github.com/rfmoraes/accounts-api-go/pkg/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailSender envia emails de verificação via SMTP
type EmailSender struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewEmailSender cria um novo remetente de email
func NewEmailSender(cfg config.SMTPConfig, logger *zap.Logger) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		logger: logger,
	}
}

// Send envia um email de texto simples
func (e *EmailSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(
		e.cfg.Host,
		e.cfg.Port,
		e.cfg.Username,
		e.cfg.Password,
	)

	return d.DialAndSend(m)
}
