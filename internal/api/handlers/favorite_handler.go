package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// FavoriteHandler handles bookmark endpoints.
type FavoriteHandler struct {
	favoriteService services.IFavoriteService
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(favoriteService services.IFavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

// ToggleFavorite handles POST /v1/listing/:id/favorite.
func (h *FavoriteHandler) ToggleFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "invalid listing ID format"})
		return
	}

	favorited, err := h.favoriteService.Toggle(c.Request.Context(), userID, listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": favorited})
}

// MyFavorites handles GET /v1/me/favorites.
func (h *FavoriteHandler) MyFavorites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	favorites, err := h.favoriteService.FindByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": favorites})
}
