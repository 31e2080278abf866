package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/app"
	"pdfchat/internal/transport/http/middleware"
	"pdfchat/internal/transport/http/response"
)

type UserHandler struct {
	accountService *app.AccountService
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"max=256"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,max=254"`
}

type CodeRequest struct {
	Email string `json:"email" binding:"required,max=254"`
	Code  string `json:"code" binding:"required,max=16"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,max=254"`
	Code        string `json:"code" binding:"required,max=16"`
	NewPassword string `json:"new_password" binding:"required,max=256"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email" binding:"required,max=254"`
	OldPassword string `json:"old_password" binding:"max=256"`
	NewPassword string `json:"new_password" binding:"required,max=256"`
}

func NewUserHandler(accountService *app.AccountService) *UserHandler {
	return &UserHandler{accountService: accountService}
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.accountService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *UserHandler) VerifyCode(c *gin.Context) {
	var req CodeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.accountService.VerifyLogin(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.accountService.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *UserHandler) VerifyResetCode(c *gin.Context) {
	var req CodeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.accountService.VerifyResetCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.accountService.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if ticketEmail, ok := middleware.MFAEmail(c); ok && !strings.EqualFold(ticketEmail, app.NormalizeEmail(req.Email)) {
		response.Error(c, http.StatusForbidden, response.CodeUnauthorized, "MFA ticket does not match email")
		return
	}
	result, err := h.accountService.ChangePassword(c.Request.Context(), req.Email, req.OldPassword, req.NewPassword)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return false
	}
	return true
}
