package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rfmoraes/accounts-api-go/internal/app/identity"
	apperrors "github.com/rfmoraes/accounts-api-go/pkg/errors"
	"go.uber.org/zap"
)

// AuthHandler expõe os endpoints públicos de registro, autenticação e
// ciclo de vida de credenciais
type AuthHandler struct {
	identity *identity.Service
	logger   *zap.Logger
}

// NewAuthHandler cria um novo handler de autenticação
func NewAuthHandler(identityService *identity.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identityService,
		logger:   logger,
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	CPF       string `json:"cpf" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

// Register cria uma nova conta em estado pendente
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	user, err := h.identity.Register(c.Request.Context(), identity.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		CPF:       req.CPF,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login autentica por email e senha e devolve um token de acesso
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	token, err := h.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

type ActivateRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// Activate consome o código de ativação e ativa a conta
func (h *AuthHandler) Activate(c *gin.Context) {
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	user, err := h.identity.Activate(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RegenerateActivationCode emite um novo código de ativação para uma
// conta pendente, invalidando o anterior
func (h *AuthHandler) RegenerateActivationCode(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	if err := h.identity.RegenerateActivationCode(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Novo código de ativação enviado"})
}

// ForgotPassword emite um código de redefinição de senha
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	if err := h.identity.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Código de redefinição enviado"})
}

type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// VerifyResetCode confere o código de redefinição sem consumi-lo
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	if err := h.identity.VerifyResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ResetPassword troca a senha mediante um código de redefinição vivo
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	if err := h.identity.ResetPassword(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Senha redefinida com sucesso"})
}

// respondError converte um erro de serviço na resposta HTTP adequada.
// Erros fora da taxonomia viram 500 com mensagem genérica.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
		return
	}

	logger.Error("erro não mapeado no handler", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno do servidor"})
}
