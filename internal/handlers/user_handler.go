package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
)

// UserHandler はユーザー関連のハンドラーを管理します。
type UserHandler struct {
	userService *services.UserService
	errs        *ErrorWriter
}

// NewUserHandler は新しいUserHandlerを作成します。
func NewUserHandler(userService *services.UserService, errs *ErrorWriter) *UserHandler {
	return &UserHandler{userService: userService, errs: errs}
}

// RegisterHandler はユーザー登録を処理します。
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	var req models.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.Write(c, bindError(err))
		return
	}

	result, err := h.userService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": result.User, "token": result.Token})
}

// LoginHandler はユーザーログインを処理します。
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.Write(c, bindError(err))
		return
	}

	result, err := h.userService.AuthenticateUser(c.Request.Context(), req)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": result.Token, "user": result.User})
}

// MeHandler は認証済みユーザーの情報を返します。
func (h *UserHandler) MeHandler(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.errs.Write(c, services.ErrMissingToken)
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), identity)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// UpdateMeHandler は名前・パスワードを更新します。
func (h *UserHandler) UpdateMeHandler(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		h.errs.Write(c, services.ErrMissingToken)
		return
	}

	var req models.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.Write(c, bindError(err))
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), identity, req)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
