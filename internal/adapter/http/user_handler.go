package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rfmoraes/accounts-api-go/internal/app/identity"
	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"github.com/rfmoraes/accounts-api-go/internal/infra/middleware"
	"github.com/rfmoraes/accounts-api-go/internal/storage"
	"go.uber.org/zap"
)

// UserHandler expõe os endpoints de perfil e a superfície administrativa
type UserHandler struct {
	identity     *identity.Service
	photos       *storage.PhotoStorage
	maxPhotoSize int64
	logger       *zap.Logger
}

// NewUserHandler cria um novo handler de usuários
func NewUserHandler(identityService *identity.Service, photos *storage.PhotoStorage, maxPhotoSizeMB int64, logger *zap.Logger) *UserHandler {
	if maxPhotoSizeMB <= 0 {
		maxPhotoSizeMB = 5
	}
	return &UserHandler{
		identity:     identityService,
		photos:       photos,
		maxPhotoSize: maxPhotoSizeMB << 20,
		logger:       logger,
	}
}

// GetProfile devolve o perfil do usuário autenticado
func (h *UserHandler) GetProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}

	user, err := h.identity.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

// UpdateProfile atualiza os campos mutáveis do próprio perfil
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	user, err := h.identity.UpdateUser(c.Request.Context(), claims.UserID, identity.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, claims.UserID, false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UploadPhoto recebe a foto de perfil via multipart e grava no
// armazenamento local, substituindo a anterior
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPhotoSize)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Arquivo de foto não fornecido"})
		return
	}

	if fileHeader.Size > h.maxPhotoSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Arquivo excede o tamanho máximo permitido"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Falha ao ler arquivo"})
		return
	}
	defer file.Close()

	path, err := h.photos.Save(claims.UserID, file)
	if err != nil {
		h.logger.Error("falha ao gravar foto", zap.String("user_id", claims.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao gravar foto"})
		return
	}

	user, err := h.identity.SetPhoto(c.Request.Context(), claims.UserID, path, claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers devolve todos os usuários. Restrito a admin e owner.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.identity.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUser devolve um usuário pelo id. Restrito a admin e owner.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.identity.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type AdminUpdateRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role" binding:"omitempty,oneof=user admin owner"`
}

// UpdateUser atualiza o perfil de qualquer usuário, incluindo o papel.
// Restrito a admin e owner.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}

	var req AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos: " + err.Error()})
		return
	}

	// Só o owner pode conceder o papel de owner
	if req.Role != nil && *req.Role == model.RoleOwner && claims.Role != model.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Apenas o owner pode conceder este papel"})
		return
	}

	user, err := h.identity.UpdateUser(c.Request.Context(), c.Param("id"), identity.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
	}, claims.UserID, true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser remove definitivamente uma conta. Restrito ao owner.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, err := h.identity.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// Remove a foto pelo id validado pelo diretório, nunca pelo
	// parâmetro bruto da URL
	if err := h.photos.Remove(user.ID); err != nil {
		h.logger.Warn("falha ao remover foto do usuário", zap.String("user_id", user.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Usuário removido com sucesso"})
}

// BlockUser bloqueia uma conta. Restrito a admin e owner.
func (h *UserHandler) BlockUser(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}

	user, err := h.identity.BlockUser(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UnblockUser desbloqueia uma conta. Restrito a admin e owner.
func (h *UserHandler) UnblockUser(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
		return
	}

	user, err := h.identity.UnblockUser(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
