package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madickediagne/LOGISEN/internal/auth"
	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/services"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg *config.Config, userService services.IUserService) *AuthHandler {
	return &AuthHandler{cfg: cfg, userService: userService}
}

type registerRequest struct {
	Role     string `json:"role" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email" binding:"required"`
	City     string `json:"city"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), services.RegisterInput{
		Role:     models.Role(req.Role),
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		City:     req.City,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
