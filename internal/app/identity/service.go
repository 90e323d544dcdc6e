package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rfmoraes/accounts-api-go/internal/adapter/database"
	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"github.com/rfmoraes/accounts-api-go/internal/infra/metrics"
	"github.com/rfmoraes/accounts-api-go/pkg/cache"
	apperrors "github.com/rfmoraes/accounts-api-go/pkg/errors"
	"github.com/rfmoraes/accounts-api-go/pkg/logging"
	"github.com/rfmoraes/accounts-api-go/pkg/security"
	"go.uber.org/zap"
)

const userCacheTTL = 5 * time.Minute

// UserRepository define a interface para o diretório de usuários
type UserRepository interface {
	Create(ctx context.Context, user *model.UserEntity) error
	FindByID(ctx context.Context, id string) (*model.UserEntity, error)
	FindByEmail(ctx context.Context, email string) (*model.UserEntity, error)
	FindByPhone(ctx context.Context, phone string) (*model.UserEntity, error)
	FindByCPF(ctx context.Context, cpf string) (*model.UserEntity, error)
	FindAll(ctx context.Context) ([]*model.UserEntity, error)
	Update(ctx context.Context, user *model.UserEntity) error
	Delete(ctx context.Context, id string) error
}

// CodeRepository define a interface para o armazém de códigos de verificação
type CodeRepository interface {
	Issue(ctx context.Context, userID, purpose string) (*model.VerificationCode, error)
	Consume(ctx context.Context, userID, purpose, code string) error
	PeekValid(ctx context.Context, userID, purpose, code string) (bool, error)
}

// Notifier define a interface dos canais de notificação. O envio é
// melhor esforço: falhas não se propagam ao ciclo de vida.
type Notifier interface {
	SendActivationNotice(ctx context.Context, email, phone, code string)
	SendNewActivationNotice(ctx context.Context, email, phone, code string)
	SendResetNotice(ctx context.Context, email, phone, code string)
}

// Service é o gerenciador do ciclo de vida de contas: registro,
// ativação, redefinição de senha, bloqueio e emissão de tokens. É o
// único dono do diretório de usuários e do armazém de códigos.
type Service struct {
	users      UserRepository
	codes      CodeRepository
	notifier   Notifier
	hasher     *security.Hasher
	keyManager *security.KeyManager
	tokenTTL   time.Duration
	cache      cache.Cache
	metrics    *metrics.APIMetrics
	logger     *logging.ContextLogger
}

// NewService cria um novo serviço de identidade
func NewService(
	users UserRepository,
	codes CodeRepository,
	notifier Notifier,
	hasher *security.Hasher,
	keyManager *security.KeyManager,
	tokenTTL time.Duration,
	userCache cache.Cache,
	apiMetrics *metrics.APIMetrics,
	logger *zap.Logger,
) *Service {
	if userCache == nil {
		userCache = &cache.NoOpCache{}
	}
	return &Service{
		users:      users,
		codes:      codes,
		notifier:   notifier,
		hasher:     hasher,
		keyManager: keyManager,
		tokenTTL:   tokenTTL,
		cache:      userCache,
		metrics:    apiMetrics,
		logger:     logging.NewContextLogger(logger),
	}
}

// RegisterInput são os dados de registro de uma nova conta
type RegisterInput struct {
	Email     string
	Password  string
	CPF       string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateInput são os campos mutáveis do perfil. Ponteiros nil indicam
// campos não alterados. Role só é aplicado em atualizações de admin.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *string
}

// Register cria uma conta em estado pendente, emite o código de
// ativação e despacha as notificações. O papel é sempre user: elevação
// de privilégio só acontece por atualização administrativa.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	// Pré-checagens de unicidade para erros amigáveis. O índice único
	// do armazenamento continua sendo a garantia final sob corrida.
	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.Conflict("Email já está em uso", nil)
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, s.internal("falha ao verificar email", err)
	}

	if _, err := s.users.FindByPhone(ctx, input.Phone); err == nil {
		return nil, apperrors.Conflict("Telefone já está em uso", nil)
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, s.internal("falha ao verificar telefone", err)
	}

	if _, err := s.users.FindByCPF(ctx, input.CPF); err == nil {
		return nil, apperrors.Conflict("CPF já está em uso", nil)
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, s.internal("falha ao verificar cpf", err)
	}

	hashed, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, security.ErrEmptyPassword) {
			return nil, apperrors.BadRequest("Senha não pode ser vazia", err)
		}
		return nil, s.internal("falha ao processar senha", err)
	}

	id := uuid.New().String()
	entity := &model.UserEntity{
		ID:        id,
		Email:     input.Email,
		CPF:       input.CPF,
		Password:  hashed,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Role:      model.RoleUser,
		Status:    model.StatusPending,
		CreatedBy: id,
		UpdatedBy: id,
	}

	if err := s.users.Create(ctx, entity); err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			// Concorrente venceu a corrida de inserção
			return nil, apperrors.Conflict("Usuário já existe", nil)
		}
		return nil, s.internal("falha ao criar usuário", err)
	}

	if s.metrics != nil {
		s.metrics.UserRegistered()
	}

	// Um crash entre a criação do usuário e a emissão do código deixa
	// uma conta pendente sem código, recuperável via regeneração.
	code, err := s.codes.Issue(ctx, entity.ID, model.PurposeActivation)
	if err != nil {
		s.logger.ErrorCtx(ctx, "falha ao emitir código de ativação", zap.String("user_id", entity.ID), zap.Error(err))
		return nil, s.internal("falha ao emitir código de ativação", err)
	}

	if s.metrics != nil {
		s.metrics.CodeIssued(model.PurposeActivation)
	}

	s.logger.InfoCtx(ctx, "usuário registrado",
		zap.String("user_id", entity.ID),
		zap.String("email", entity.Email))

	s.notifier.SendActivationNotice(ctx, entity.Email, entity.Phone, code.Code)

	return entity.ToUser(), nil
}

// Login autentica por email e senha e emite um token de acesso.
// Credencial inexistente, senha errada e conta bloqueada respondem
// igual: Unauthorized, sem detalhar o motivo.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	entity, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return "", apperrors.Unauthorized("Credenciais inválidas", nil)
		}
		return "", s.internal("falha ao buscar usuário", err)
	}

	if entity.Status == model.StatusBlocked {
		s.logger.WarnCtx(ctx, "tentativa de login de conta bloqueada", zap.String("user_id", entity.ID))
		return "", apperrors.Unauthorized("Credenciais inválidas", nil)
	}

	if !s.hasher.VerifyPassword(password, entity.Password) {
		s.logger.WarnCtx(ctx, "falha na autenticação", zap.String("email", email))
		return "", apperrors.Unauthorized("Credenciais inválidas", nil)
	}

	token, err := s.keyManager.GenerateToken(entity.ID, entity.Email, entity.Role, s.tokenTTL)
	if err != nil {
		return "", s.internal("falha ao gerar token", err)
	}

	s.logger.InfoCtx(ctx, "login bem-sucedido", zap.String("user_id", entity.ID))
	return token, nil
}

// Activate consome um código de ativação vivo e transiciona a conta de
// pending para active. Reenvio do mesmo código falha: o consumo é de
// uso único.
func (s *Service) Activate(ctx context.Context, email, code string) (*model.User, error) {
	entity, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.codes.Consume(ctx, entity.ID, model.PurposeActivation, code); err != nil {
		if errors.Is(err, database.ErrCodeNotFound) {
			// Código errado e código expirado são indistinguíveis
			s.logger.WarnCtx(ctx, "código de ativação inválido", zap.String("user_id", entity.ID))
			return nil, apperrors.Unauthorized("Código de ativação inválido", nil)
		}
		return nil, s.internal("falha ao consumir código", err)
	}

	entity.Status = model.StatusActive
	entity.UpdatedBy = entity.ID
	if err := s.users.Update(ctx, entity); err != nil {
		return nil, s.internal("falha ao ativar usuário", err)
	}

	if s.metrics != nil {
		s.metrics.CodeConsumed(model.PurposeActivation)
		s.metrics.UserActivated()
	}

	s.invalidate(ctx, entity.ID)
	s.logger.InfoCtx(ctx, "usuário ativado", zap.String("user_id", entity.ID))
	return entity.ToUser(), nil
}

// RegenerateActivationCode substitui o código de ativação de uma conta
// pendente. O código anterior deixa de valer, mesmo que ainda não
// tenha expirado.
func (s *Service) RegenerateActivationCode(ctx context.Context, email string) error {
	entity, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	if entity.Status != model.StatusPending {
		s.logger.WarnCtx(ctx, "regeneração de código para conta não pendente",
			zap.String("user_id", entity.ID),
			zap.String("status", entity.Status))
		return apperrors.Forbidden("Usuário não está pendente de ativação", nil)
	}

	code, err := s.codes.Issue(ctx, entity.ID, model.PurposeActivation)
	if err != nil {
		return s.internal("falha ao emitir código de ativação", err)
	}

	if s.metrics != nil {
		s.metrics.CodeIssued(model.PurposeActivation)
	}

	s.logger.InfoCtx(ctx, "novo código de ativação emitido", zap.String("user_id", entity.ID))
	s.notifier.SendNewActivationNotice(ctx, entity.Email, entity.Phone, code.Code)
	return nil
}

// ForgotPassword emite um código de redefinição de senha e despacha as
// notificações. Não altera o estado da conta.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	entity, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, entity.ID, model.PurposePasswordReset)
	if err != nil {
		return s.internal("falha ao emitir código de redefinição", err)
	}

	if s.metrics != nil {
		s.metrics.CodeIssued(model.PurposePasswordReset)
	}

	s.logger.InfoCtx(ctx, "código de redefinição emitido", zap.String("user_id", entity.ID))
	s.notifier.SendResetNotice(ctx, entity.Email, entity.Phone, code.Code)
	return nil
}

// VerifyResetCode confere um código de redefinição sem consumi-lo,
// para a etapa de pré-verificação do fluxo de reset.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	entity, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	valid, err := s.codes.PeekValid(ctx, entity.ID, model.PurposePasswordReset, code)
	if err != nil {
		return s.internal("falha ao verificar código", err)
	}
	if !valid {
		s.logger.WarnCtx(ctx, "código de redefinição inválido", zap.String("user_id", entity.ID))
		return apperrors.Unauthorized("Código de redefinição inválido", nil)
	}

	return nil
}

// ResetPassword troca o hash da senha mediante um código de
// redefinição vivo e consome o código.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	entity, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	// Hash antes do consumo: se a senha for inválida o código não é
	// queimado e o usuário pode tentar de novo.
	hashed, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, security.ErrEmptyPassword) {
			return apperrors.BadRequest("Senha não pode ser vazia", err)
		}
		return s.internal("falha ao processar senha", err)
	}

	if err := s.codes.Consume(ctx, entity.ID, model.PurposePasswordReset, code); err != nil {
		if errors.Is(err, database.ErrCodeNotFound) {
			s.logger.WarnCtx(ctx, "código de redefinição inválido", zap.String("user_id", entity.ID))
			return apperrors.Unauthorized("Código de redefinição inválido", nil)
		}
		return s.internal("falha ao consumir código", err)
	}

	entity.Password = hashed
	entity.UpdatedBy = entity.ID
	if err := s.users.Update(ctx, entity); err != nil {
		return s.internal("falha ao atualizar senha", err)
	}

	if s.metrics != nil {
		s.metrics.CodeConsumed(model.PurposePasswordReset)
	}

	s.invalidate(ctx, entity.ID)
	s.logger.InfoCtx(ctx, "senha redefinida", zap.String("user_id", entity.ID))
	return nil
}

// GetUser busca um usuário pelo id, com cache de leitura
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	var cached model.User
	if found, err := s.cache.Get(ctx, userCacheKey(id), &cached); err == nil && found {
		return &cached, nil
	}

	entity, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.NotFound("Usuário", nil)
		}
		return nil, s.internal("falha ao buscar usuário", err)
	}

	user := entity.ToUser()
	if err := s.cache.Set(ctx, userCacheKey(id), user, userCacheTTL); err != nil {
		s.logger.DebugCtx(ctx, "falha ao gravar cache de usuário", zap.Error(err))
	}

	return user, nil
}

// ListUsers retorna todos os usuários cadastrados
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	entities, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, s.internal("falha ao listar usuários", err)
	}

	users := make([]*model.User, 0, len(entities))
	for _, entity := range entities {
		users = append(users, entity.ToUser())
	}
	return users, nil
}

// UpdateUser aplica os campos informados ao perfil. Role só é aplicado
// quando asAdmin é verdadeiro; status nunca muda por aqui.
func (s *Service) UpdateUser(ctx context.Context, id string, input UpdateInput, actorID string, asAdmin bool) (*model.User, error) {
	entity, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.NotFound("Usuário", nil)
		}
		return nil, s.internal("falha ao buscar usuário", err)
	}

	if input.FirstName != nil {
		entity.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		entity.LastName = *input.LastName
	}
	if input.Phone != nil && *input.Phone != entity.Phone {
		// Mesma pré-checagem amigável do registro; o índice único do
		// armazenamento segue sendo a garantia final sob corrida.
		if other, err := s.users.FindByPhone(ctx, *input.Phone); err == nil && other.ID != entity.ID {
			return nil, apperrors.Conflict("Telefone já está em uso", nil)
		} else if err != nil && !errors.Is(err, database.ErrUserNotFound) {
			return nil, s.internal("falha ao verificar telefone", err)
		}
		entity.Phone = *input.Phone
	}
	if input.Role != nil {
		if !asAdmin {
			return nil, apperrors.Forbidden("Alteração de papel requer privilégio administrativo", nil)
		}
		entity.Role = *input.Role
	}
	entity.UpdatedBy = actorID

	if err := s.users.Update(ctx, entity); err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			return nil, apperrors.Conflict("Campo único já está em uso", nil)
		}
		return nil, s.internal("falha ao atualizar usuário", err)
	}

	s.invalidate(ctx, id)
	return entity.ToUser(), nil
}

// DeleteUser remove definitivamente a conta e devolve o perfil
// removido, para que o chamador limpe recursos associados (foto)
// usando o id validado pelo diretório.
func (s *Service) DeleteUser(ctx context.Context, id string) (*model.User, error) {
	entity, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.NotFound("Usuário", nil)
		}
		return nil, s.internal("falha ao buscar usuário", err)
	}

	if err := s.users.Delete(ctx, entity.ID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.NotFound("Usuário", nil)
		}
		return nil, s.internal("falha ao remover usuário", err)
	}

	s.invalidate(ctx, entity.ID)
	s.logger.InfoCtx(ctx, "usuário removido", zap.String("user_id", entity.ID))
	return entity.ToUser(), nil
}

// BlockUser bloqueia a conta. O estado anterior não é preservado:
// desbloquear sempre resulta em active.
func (s *Service) BlockUser(ctx context.Context, id, actorID string) (*model.User, error) {
	return s.setStatus(ctx, id, actorID, model.StatusBlocked)
}

// UnblockUser desbloqueia a conta, sobrescrevendo o status para active
// mesmo que a conta estivesse pendente quando foi bloqueada.
func (s *Service) UnblockUser(ctx context.Context, id, actorID string) (*model.User, error) {
	return s.setStatus(ctx, id, actorID, model.StatusActive)
}

// SetPhoto registra o caminho da foto de perfil do usuário
func (s *Service) SetPhoto(ctx context.Context, id, path, actorID string) (*model.User, error) {
	entity, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.NotFound("Usuário", nil)
		}
		return nil, s.internal("falha ao buscar usuário", err)
	}

	entity.Photo = path
	entity.UpdatedBy = actorID
	if err := s.users.Update(ctx, entity); err != nil {
		return nil, s.internal("falha ao atualizar foto", err)
	}

	s.invalidate(ctx, id)
	return entity.ToUser(), nil
}

func (s *Service) setStatus(ctx context.Context, id, actorID, status string) (*model.User, error) {
	entity, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.NotFound("Usuário", nil)
		}
		return nil, s.internal("falha ao buscar usuário", err)
	}

	entity.Status = status
	entity.UpdatedBy = actorID
	if err := s.users.Update(ctx, entity); err != nil {
		return nil, s.internal("falha ao atualizar status", err)
	}

	s.invalidate(ctx, id)
	s.logger.InfoCtx(ctx, "status de usuário alterado",
		zap.String("user_id", id),
		zap.String("status", status),
		zap.String("actor", actorID))
	return entity.ToUser(), nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*model.UserEntity, error) {
	entity, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.NotFound("Usuário", nil)
		}
		return nil, s.internal("falha ao buscar usuário", err)
	}
	return entity, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, userCacheKey(id)); err != nil {
		s.logger.DebugCtx(ctx, "falha ao invalidar cache de usuário", zap.Error(err))
	}
}

// internal loga o erro original e devolve um erro genérico: detalhes
// do armazenamento não atravessam a fronteira da API.
func (s *Service) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.InternalServer("", err)
}

func userCacheKey(id string) string {
	return "user:" + id
}
