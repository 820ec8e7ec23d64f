package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/api/middleware"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// VisitHandler handles visit request endpoints.
type VisitHandler struct {
	visitService services.IVisitService
	userService  services.IUserService
}

// NewVisitHandler creates a new VisitHandler.
func NewVisitHandler(visitService services.IVisitService, userService services.IUserService) *VisitHandler {
	return &VisitHandler{visitService: visitService, userService: userService}
}

type createVisitRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
}

// CreateVisit handles POST /v1/visit.
func (h *VisitHandler) CreateVisit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	var req createVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}
	listingID, err := utils.ParseSixID(req.ListingID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "invalid listing ID format"})
		return
	}

	student, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	visit, err := h.visitService.CreateVisitRequest(c.Request.Context(), student, listingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, visitView(visit))
}

// MyVisits handles GET /v1/me/visits. Students see the requests they made,
// landlords the requests addressed to them.
func (h *VisitHandler) MyVisits(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	var visits []models.VisitRequest
	var err error
	if c.GetString(middleware.ContextKeyUserRole) == string(models.RoleLandlord) {
		visits, err = h.visitService.FindVisitsByLandlord(c.Request.Context(), userID)
	} else {
		visits, err = h.visitService.FindVisitsByStudent(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": visitViews(visits)})
}

type updateVisitStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateVisitStatus handles PATCH /v1/visit/:id/status.
func (h *VisitHandler) UpdateVisitStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}
	visitID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "invalid visit ID format"})
		return
	}

	var req updateVisitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	visit, err := h.visitService.UpdateStatus(c.Request.Context(), visitID, userID, models.VisitStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, visitView(visit))
}

type updateVisitDateRequest struct {
	Date string `json:"date"`
}

// UpdateVisitDate handles PATCH /v1/visit/:id/date.
func (h *VisitHandler) UpdateVisitDate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}
	visitID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "invalid visit ID format"})
		return
	}

	var req updateVisitDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	visit, err := h.visitService.UpdateDate(c.Request.Context(), visitID, userID, req.Date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, visitView(visit))
}

// StreamMyVisits handles GET /v1/me/visits/stream as server-sent events.
// Each event carries the full current snapshot of the caller's visit list.
func (h *VisitHandler) StreamMyVisits(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	var snapshots <-chan []models.VisitRequest
	if c.GetString(middleware.ContextKeyUserRole) == string(models.RoleLandlord) {
		snapshots = h.visitService.SubscribeLandlordVisits(c.Request.Context(), userID)
	} else {
		snapshots = h.visitService.SubscribeStudentVisits(c.Request.Context(), userID)
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		snapshot, open := <-snapshots
		if !open {
			return false
		}
		c.SSEvent("snapshot", visitViews(snapshot))
		return true
	})
}

// visitViewModel is the API shape of a visit request, with the composite
// French status message attached.
type visitViewModel struct {
	models.VisitRequest
	StatusLabel string `json:"status_label"`
}

func visitView(v *models.VisitRequest) visitViewModel {
	return visitViewModel{VisitRequest: *v, StatusLabel: v.StatusLabel()}
}

func visitViews(visits []models.VisitRequest) []visitViewModel {
	views := make([]visitViewModel, 0, len(visits))
	for i := range visits {
		views = append(views, visitView(&visits[i]))
	}
	return views
}
