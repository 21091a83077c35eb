package delivery

import (
	"fmt"
	"net/http"
	"strings"

	"shopsphere/config"
	"shopsphere/domain"
	"shopsphere/utils"

	"github.com/gin-gonic/gin"
)

// Session cookies: secure, http-only, cross-site capable, 7-day ceiling.
const cookieMaxAge = 7 * 24 * 60 * 60

type AuthHandler struct {
	authUC domain.AuthUseCase
}

func NewAuthHandler(r *gin.Engine, authUC domain.AuthUseCase) {
	handler := &AuthHandler{authUC: authUC}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	user := r.Group("/user")
	{
		user.POST("/register", handler.Register)
		user.POST("/verify", handler.VerifyRegistration)
		user.POST("/login", handler.Login)
		user.POST("/forget-password", handler.ForgetPassword)
		user.POST("/verify-forget-password-otp", handler.VerifyForgetPasswordOTP)
		user.POST("/reset-password", handler.ResetPassword)
	}

	protected := r.Group("/user")
	protected.Use(config.AuthMiddleware(handler.authUC.GetAccessTokenManager()))
	{
		protected.GET("/me", handler.Me)
	}
}

type RegisterRequest struct {
	Name  string `json:"name" binding:"required,min=3,max=50"`
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.NewValidationError(utils.TranslateValidationError(err)))
		return
	}

	email := strings.ToLower(req.Email)
	if err := h.authUC.Register(c.Request.Context(), req.Name, email); err != nil {
		c.Error(err)
		return
	}

	utils.PrintLogInfo(&email, http.StatusOK, "Register", nil)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent successfully to your email",
	})
}

type VerifyRegistrationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	OTP      string `json:"otp" binding:"required,len=4,numeric"`
	Password string `json:"password" binding:"required,min=8,max=64"`
	Name     string `json:"name" binding:"required,min=3,max=50"`
}

func (h *AuthHandler) VerifyRegistration(c *gin.Context) {
	var req VerifyRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.NewValidationError(utils.TranslateValidationError(err)))
		return
	}

	email := strings.ToLower(req.Email)
	user, err := h.authUC.VerifyRegistration(c.Request.Context(), email, req.OTP, req.Password, req.Name)
	if err != nil {
		c.Error(err)
		return
	}

	utils.PrintLogInfo(&email, http.StatusCreated, "VerifyRegistration", nil)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("%s created a new account successfully", user.Name),
		"data":    user,
	})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.NewValidationError(utils.TranslateValidationError(err)))
		return
	}

	email := strings.ToLower(req.Email)
	user, tokens, err := h.authUC.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie("accessToken", tokens.AccessToken, cookieMaxAge, "/", "", true, true)
	c.SetCookie("refreshToken", tokens.RefreshToken, cookieMaxAge, "/", "", true, true)

	utils.PrintLogInfo(&email, http.StatusOK, "Login", nil)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "login successful",
		"data":    user,
	})
}

type ForgetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) ForgetPassword(c *gin.Context) {
	var req ForgetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.NewValidationError(utils.TranslateValidationError(err)))
		return
	}

	email := strings.ToLower(req.Email)
	if err := h.authUC.ForgetPassword(c.Request.Context(), email); err != nil {
		c.Error(err)
		return
	}

	utils.PrintLogInfo(&email, http.StatusOK, "ForgetPassword", nil)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent for reset password",
	})
}

type VerifyForgetPasswordOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=4,numeric"`
}

func (h *AuthHandler) VerifyForgetPasswordOTP(c *gin.Context) {
	var req VerifyForgetPasswordOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.NewValidationError(utils.TranslateValidationError(err)))
		return
	}

	email := strings.ToLower(req.Email)
	if err := h.authUC.VerifyForgetPasswordOTP(c.Request.Context(), email, req.OTP); err != nil {
		c.Error(err)
		return
	}

	utils.PrintLogInfo(&email, http.StatusOK, "VerifyForgetPasswordOTP", nil)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP verified, you can now reset your password",
	})
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=64"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.NewValidationError(utils.TranslateValidationError(err)))
		return
	}

	email := strings.ToLower(req.Email)
	if err := h.authUC.ResetPassword(c.Request.Context(), email, req.NewPassword); err != nil {
		c.Error(err)
		return
	}

	utils.PrintLogInfo(&email, http.StatusOK, "ResetPassword", nil)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "password reset successfully",
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.authUC.Me(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
