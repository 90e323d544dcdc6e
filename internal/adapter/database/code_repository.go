package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrCodeNotFound indica que nenhum código vivo corresponde à consulta.
// Código errado e código expirado são indistinguíveis para o chamador.
var ErrCodeNotFound = errors.New("código de verificação não encontrado")

// CodeRepository armazena códigos de verificação de uso único. Emitir
// um código remove os anteriores do mesmo (usuário, propósito): o
// repositório mantém no máximo um código vivo por par, mesmo sob
// chamadas concorrentes (vence o último gravado).
type CodeRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	tracer trace.Tracer
	ttl    time.Duration
	digits int

	// now é substituível em testes de expiração
	now func() time.Time
}

// NewCodeRepository cria um novo repositório de códigos de verificação
func NewCodeRepository(db *gorm.DB, ttl time.Duration, digits int, logger *zap.Logger) *CodeRepository {
	tracer := otel.GetTracerProvider().Tracer("accounts-api.repository.code")

	return &CodeRepository{
		db:     db,
		logger: logger,
		tracer: tracer,
		ttl:    ttl,
		digits: digits,
		now:    time.Now,
	}
}

// Issue remove os códigos vivos do par (usuário, propósito) e persiste
// um novo código aleatório com validade de agora + TTL
func (r *CodeRepository) Issue(ctx context.Context, userID, purpose string) (*model.VerificationCode, error) {
	ctx, span := r.tracer.Start(
		ctx,
		"CodeRepository.Issue",
		trace.WithAttributes(
			attribute.String("db.table", "verification_codes"),
			attribute.String("code.purpose", purpose),
		),
	)
	defer span.End()

	// Excluir códigos anteriores do mesmo propósito antes de inserir.
	// A ordem excluir-depois-inserir garante o invariante de no máximo
	// um código vivo por par, ainda que duas emissões concorrentes não
	// tenham resultado deterministicamente previsível.
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&model.VerificationCode{}).Error; err != nil {
		r.logger.Error("falha ao excluir códigos anteriores", zap.Error(err))
		span.SetStatus(codes.Error, "database error")
		return nil, fmt.Errorf("falha ao excluir códigos anteriores: %w", err)
	}

	value, err := r.randomCode()
	if err != nil {
		span.SetStatus(codes.Error, "rng error")
		return nil, fmt.Errorf("falha ao gerar código: %w", err)
	}

	now := r.now()
	code := &model.VerificationCode{
		ID:        uuid.New().String(),
		UserID:    userID,
		Code:      value,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}

	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		r.logger.Error("falha ao persistir código", zap.Error(err))
		span.SetStatus(codes.Error, "database error")
		return nil, fmt.Errorf("falha ao persistir código: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return code, nil
}

// Consume busca o código vivo que corresponde exatamente a (usuário,
// propósito, código) e o remove. Um código consumido nunca é aceito de
// novo: sob consumo concorrente do mesmo código, apenas um chamador
// observa sucesso.
func (r *CodeRepository) Consume(ctx context.Context, userID, purpose, code string) error {
	ctx, span := r.tracer.Start(
		ctx,
		"CodeRepository.Consume",
		trace.WithAttributes(
			attribute.String("db.table", "verification_codes"),
			attribute.String("code.purpose", purpose),
		),
	)
	defer span.End()

	entity, err := r.lookupLive(ctx, userID, purpose, code)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return err
	}

	result := r.db.WithContext(ctx).Where("id = ?", entity.ID).Delete(&model.VerificationCode{})
	if result.Error != nil {
		r.logger.Error("falha ao consumir código", zap.Error(result.Error))
		span.SetStatus(codes.Error, "database error")
		return fmt.Errorf("falha ao consumir código: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Outro consumidor venceu a corrida
		span.SetStatus(codes.Error, "already consumed")
		return ErrCodeNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// PeekValid faz a mesma consulta de Consume sem remover o código.
// Usado na pré-verificação do reset de senha, que não pode queimar o
// código antes da nova senha ser informada.
func (r *CodeRepository) PeekValid(ctx context.Context, userID, purpose, code string) (bool, error) {
	_, err := r.lookupLive(ctx, userID, purpose, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// lookupLive filtra a expiração na leitura: um código com expires_at
// vencido nunca é retornado como vivo, mesmo que ainda não tenha sido
// removido fisicamente.
func (r *CodeRepository) lookupLive(ctx context.Context, userID, purpose, code string) (*model.VerificationCode, error) {
	var entity model.VerificationCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND code = ? AND expires_at > ?", userID, purpose, code, r.now()).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		r.logger.Error("falha ao buscar código", zap.Error(err))
		return nil, fmt.Errorf("falha ao buscar código: %w", err)
	}
	return &entity, nil
}

// CountLive retorna quantos códigos vivos existem para o par
func (r *CodeRepository) CountLive(ctx context.Context, userID, purpose string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.VerificationCode{}).
		Where("user_id = ? AND purpose = ? AND expires_at > ?", userID, purpose, r.now()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("falha ao contar códigos: %w", err)
	}
	return count, nil
}

// CountAllLive retorna o total de códigos vivos na tabela
func (r *CodeRepository) CountAllLive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.VerificationCode{}).
		Where("expires_at > ?", r.now()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("falha ao contar códigos: %w", err)
	}
	return count, nil
}

// DeleteExpired remove fisicamente os códigos vencidos
func (r *CodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", r.now()).
		Delete(&model.VerificationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("falha ao remover códigos expirados: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartReaper inicia a limpeza periódica de códigos expirados e roda
// até o contexto ser cancelado. A limpeza é só higiene de tabela: a
// validade é garantida pelo filtro de leitura em lookupLive.
func (r *CodeRepository) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := r.DeleteExpired(ctx)
				if err != nil {
					r.logger.Error("falha na limpeza de códigos expirados", zap.Error(err))
					continue
				}
				if removed > 0 {
					r.logger.Info("códigos expirados removidos", zap.Int64("count", removed))
				}
			}
		}
	}()
}

// randomCode gera um código numérico uniforme de largura fixa
func (r *CodeRepository) randomCode() (string, error) {
	max := big.NewInt(int64(math.Pow10(r.digits)))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", r.digits, n), nil
}
