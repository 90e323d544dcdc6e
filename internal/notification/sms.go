package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rfmoraes/accounts-api-go/pkg/config"
	"go.uber.org/zap"
)

// SMSSender envia SMS através de um provedor REST no estilo Twilio
type SMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
	logger *zap.Logger
}

// NewSMSSender cria um novo remetente de SMS
func NewSMSSender(cfg config.SMSConfig, logger *zap.Logger) *SMSSender {
	return &SMSSender{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send envia uma mensagem SMS para o número informado. Números locais
// (sem o sinal de +) recebem o prefixo de país configurado.
func (s *SMSSender) Send(ctx context.Context, to, body string) error {
	if !strings.HasPrefix(to, "+") {
		to = s.cfg.CountryPrefix + to
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.cfg.APIURL, s.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.From)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("falha ao montar requisição de SMS: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("falha ao enviar SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Debug("provedor de SMS retornou erro",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload))
		return fmt.Errorf("provedor de SMS retornou status %d", resp.StatusCode)
	}

	return nil
}
