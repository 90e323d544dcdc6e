package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indica que nenhum usuário corresponde à consulta
	ErrUserNotFound = errors.New("usuário não encontrado")
	// ErrDuplicateUser indica colisão em um campo único (email ou cpf)
	ErrDuplicateUser = errors.New("usuário já existe")
)

// UserRepository é o diretório de usuários: persiste contas e garante
// unicidade de email e cpf na camada de armazenamento.
type UserRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewUserRepository cria um novo repositório de usuários
func NewUserRepository(db *gorm.DB, logger *zap.Logger) *UserRepository {
	tracer := otel.GetTracerProvider().Tracer("accounts-api.repository.user")

	return &UserRepository{
		db:     db,
		logger: logger,
		tracer: tracer,
	}
}

// Create insere um novo usuário. Colisões nos índices únicos são
// devolvidas como ErrDuplicateUser: mesmo sob corrida entre duas
// inserções concorrentes, exatamente uma vence.
func (r *UserRepository) Create(ctx context.Context, user *model.UserEntity) error {
	ctx, span := r.tracer.Start(
		ctx,
		"UserRepository.Create",
		trace.WithAttributes(
			attribute.String("db.operation", "insert"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			span.SetStatus(codes.Error, "duplicate key")
			return ErrDuplicateUser
		}
		r.logger.Error("falha ao criar usuário", zap.Error(err))
		span.SetStatus(codes.Error, "database error")
		return fmt.Errorf("falha ao criar usuário: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// FindByID busca um usuário pelo id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.UserEntity, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail busca um usuário pelo email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.UserEntity, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByPhone busca um usuário pelo telefone
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*model.UserEntity, error) {
	return r.findOne(ctx, "phone = ?", phone)
}

// FindByCPF busca um usuário pelo cpf
func (r *UserRepository) FindByCPF(ctx context.Context, cpf string) (*model.UserEntity, error) {
	return r.findOne(ctx, "cpf = ?", cpf)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.UserEntity, error) {
	var entity model.UserEntity
	if err := r.db.WithContext(ctx).Where(query, arg).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("falha ao buscar usuário", zap.Error(err))
		return nil, fmt.Errorf("falha ao buscar usuário: %w", err)
	}
	return &entity, nil
}

// FindAll retorna todos os usuários
func (r *UserRepository) FindAll(ctx context.Context) ([]*model.UserEntity, error) {
	ctx, span := r.tracer.Start(
		ctx,
		"UserRepository.FindAll",
		trace.WithAttributes(
			attribute.String("db.operation", "select"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	var entities []*model.UserEntity
	if err := r.db.WithContext(ctx).Order("created_at").Find(&entities).Error; err != nil {
		r.logger.Error("falha ao listar usuários", zap.Error(err))
		span.SetStatus(codes.Error, "database error")
		return nil, fmt.Errorf("falha ao listar usuários: %w", err)
	}

	span.SetAttributes(attribute.Int("users.count", len(entities)))
	span.SetStatus(codes.Ok, "")
	return entities, nil
}

// Update persiste as alterações de um usuário existente
func (r *UserRepository) Update(ctx context.Context, user *model.UserEntity) error {
	ctx, span := r.tracer.Start(
		ctx,
		"UserRepository.Update",
		trace.WithAttributes(
			attribute.String("db.operation", "update"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Model(&model.UserEntity{}).
		Where("id = ?", user.ID).
		Select("*").Omit("id", "created_at").
		Updates(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			span.SetStatus(codes.Error, "duplicate key")
			return ErrDuplicateUser
		}
		r.logger.Error("falha ao atualizar usuário", zap.Error(result.Error))
		span.SetStatus(codes.Error, "database error")
		return fmt.Errorf("falha ao atualizar usuário: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrUserNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete remove definitivamente um usuário
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(
		ctx,
		"UserRepository.Delete",
		trace.WithAttributes(
			attribute.String("db.operation", "delete"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.UserEntity{})
	if result.Error != nil {
		r.logger.Error("falha ao remover usuário", zap.Error(result.Error))
		span.SetStatus(codes.Error, "database error")
		return fmt.Errorf("falha ao remover usuário: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrUserNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
