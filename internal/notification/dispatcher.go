package notification

import (
	"context"
	"fmt"

	"github.com/rfmoraes/accounts-api-go/internal/infra/metrics"
	"github.com/rfmoraes/accounts-api-go/pkg/resilience"
	"go.uber.org/zap"
)

const emailSubject = "Código de Verificação"

// EmailChannel define o contrato do canal de email
type EmailChannel interface {
	Send(to, subject, body string) error
}

// SMSChannel define o contrato do canal de SMS
type SMSChannel interface {
	Send(ctx context.Context, to, body string) error
}

// Dispatcher entrega códigos de verificação por email e SMS. A entrega
// é melhor esforço: cada canal pode falhar de forma independente, a
// falha é logada e contabilizada, e nunca se propaga ao chamador — o
// código já está persistido e pode ser reobtido por regeneração.
type Dispatcher struct {
	email EmailChannel
	sms   SMSChannel

	emailBreaker *resilience.CircuitBreaker
	smsBreaker   *resilience.CircuitBreaker

	metrics *metrics.APIMetrics
	logger  *zap.Logger
}

// NewDispatcher cria um novo despachante de notificações. Os circuit
// breakers são opcionais: com nil o canal é chamado diretamente.
func NewDispatcher(email EmailChannel, sms SMSChannel, emailBreaker, smsBreaker *resilience.CircuitBreaker, apiMetrics *metrics.APIMetrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		email:        email,
		sms:          sms,
		emailBreaker: emailBreaker,
		smsBreaker:   smsBreaker,
		metrics:      apiMetrics,
		logger:       logger,
	}
}

// SendActivationNotice envia o código de ativação por todos os canais
func (d *Dispatcher) SendActivationNotice(ctx context.Context, email, phone, code string) {
	d.dispatch(ctx, email, phone, fmt.Sprintf("Your activation code is %s", code))
}

// SendNewActivationNotice envia um código de ativação regenerado, com
// texto próprio para distingui-lo do código original
func (d *Dispatcher) SendNewActivationNotice(ctx context.Context, email, phone, code string) {
	d.dispatch(ctx, email, phone, fmt.Sprintf("Your new activation code is %s", code))
}

// SendResetNotice envia o código de redefinição de senha por todos os canais
func (d *Dispatcher) SendResetNotice(ctx context.Context, email, phone, code string) {
	d.dispatch(ctx, email, phone, fmt.Sprintf("Your password reset code is %s", code))
}

func (d *Dispatcher) dispatch(ctx context.Context, email, phone, message string) {
	if d.email != nil && email != "" {
		if err := d.sendEmail(ctx, email, message); err != nil {
			d.logger.Error("falha ao enviar email", zap.String("to", email), zap.Error(err))
			if d.metrics != nil {
				d.metrics.NotificationFailed("email")
			}
		} else {
			d.logger.Info("email enviado", zap.String("to", email))
		}
	}

	if d.sms != nil && phone != "" {
		if err := d.sendSMS(ctx, phone, message); err != nil {
			d.logger.Error("falha ao enviar SMS", zap.String("to", phone), zap.Error(err))
			if d.metrics != nil {
				d.metrics.NotificationFailed("sms")
			}
		} else {
			d.logger.Info("SMS enviado", zap.String("to", phone))
		}
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, body string) error {
	if d.emailBreaker == nil {
		return d.email.Send(to, emailSubject, body)
	}

	_, err := d.emailBreaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, d.email.Send(to, emailSubject, body)
	})
	return err
}

func (d *Dispatcher) sendSMS(ctx context.Context, to, body string) error {
	if d.smsBreaker == nil {
		return d.sms.Send(ctx, to, body)
	}

	_, err := d.smsBreaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, d.sms.Send(ctx, to, body)
	})
	return err
}
