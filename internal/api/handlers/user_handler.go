package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// UserHandler handles profile endpoints.
type UserHandler struct {
	userService services.IUserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe handles GET /v1/me.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUserByID handles GET /v1/user/:id. Public profile lookup.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "invalid user ID format"})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PATCH /v1/me.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
