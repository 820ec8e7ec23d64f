package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/cache"
	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/db"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/storage"
	"github.com/madickediagne/LOGISEN/internal/tasks"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// ListingHandler handles listing endpoints.
type ListingHandler struct {
	cfg            *config.Config
	listingService services.IListingService
	userService    services.IUserService
	storageService storage.IS3Storage
	taskClient     *asynq.Client
	rdb            *redis.Client
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(cfg *config.Config, listingService services.IListingService, userService services.IUserService, storageService storage.IS3Storage, taskClient *asynq.Client, rdb *redis.Client) *ListingHandler {
	return &ListingHandler{
		cfg:            cfg,
		listingService: listingService,
		userService:    userService,
		storageService: storageService,
		taskClient:     taskClient,
		rdb:            rdb,
	}
}

// SearchListings handles GET /v1/listing/search. The read runs under the
// first-paint budget: when the database is slower than the budget the
// response degrades to an empty page instead of blocking the feed.
func (h *ListingHandler) SearchListings(c *gin.Context) {
	filter := services.ListingFilter{
		Query:  c.Query("q"),
		Campus: c.Query("campus"),
	}
	if maxPriceStr := c.Query("max_price"); maxPriceStr != "" {
		maxPrice, err := strconv.Atoi(maxPriceStr)
		if err != nil || maxPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "invalid max_price"})
			return
		}
		filter.MaxPrice = &maxPrice
	}
	if typeStr := c.Query("type"); typeStr != "" {
		t := models.PropertyType(typeStr)
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "unknown property type"})
			return
		}
		filter.Type = &t
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = h.cfg.SearchLimit
	}

	listings, err := db.GuardedFetch(c.Request.Context(), h.cfg.ReadGuardTimeout, func(ctx context.Context) ([]models.Listing, error) {
		return h.listingService.SearchListings(ctx, filter, limit)
	})
	if err != nil {
		if apperr.Is(err, apperr.Timeout) {
			c.JSON(http.StatusOK, gin.H{"data": []models.Listing{}, "degraded": true})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetListingByID handles GET /v1/listing/:id, with a short-lived cache in
// front of Mongo.
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	listingID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "invalid listing ID format"})
		return
	}

	cacheKey := "listing:" + listingID.String()
	var cached models.Listing
	if cache.GetJSON(c.Request.Context(), h.rdb, cacheKey, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}

	cache.SetJSON(c.Request.Context(), h.rdb, cacheKey, listing, h.cfg.GetCacheTTL)
	c.JSON(http.StatusOK, listing)
}

type createListingRequest struct {
	Title   string                 `json:"title" binding:"required"`
	Desc    string                 `json:"desc"`
	Price   string                 `json:"price" binding:"required"`
	Area    string                 `json:"area" binding:"required"`
	Type    string                 `json:"type" binding:"required"`
	Details *models.ListingDetails `json:"details"`
	Phone   string                 `json:"phone" binding:"required"`
}

// CreateListing handles POST /v1/listing.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	owner, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), owner, services.CreateListingInput{
		Title:   req.Title,
		Desc:    req.Desc,
		Price:   req.Price,
		Area:    req.Area,
		Type:    models.PropertyType(req.Type),
		Details: req.Details,
		Phone:   req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// UpdateListing handles PATCH /v1/listing/:id.
func (h *ListingHandler) UpdateListing(c *gin.Context) {
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

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, userID, updates)
	if err != nil {
		respondError(c, err)
		return
	}

	cache.Invalidate(c.Request.Context(), h.rdb, "listing:"+listingID.String())
	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /v1/listing/:id.
func (h *ListingHandler) DeleteListing(c *gin.Context) {
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

	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, userID); err != nil {
		respondError(c, err)
		return
	}

	cache.Invalidate(c.Request.Context(), h.rdb, "listing:"+listingID.String())
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// MyListings handles GET /v1/me/listings.
func (h *ListingHandler) MyListings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	listings, err := h.listingService.FindListingsByOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

type presignUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignImageUpload handles POST /v1/listing/:id/images/presign. Only the
// listing owner can obtain an upload URL.
func (h *ListingHandler) PresignImageUpload(c *gin.Context) {
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

	var req presignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": "content_type must be an image type"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if listing.OwnerID != userID {
		respondError(c, apperr.New(apperr.PermissionDenied, "listing belongs to another landlord"))
		return
	}

	uploadURL, objectKey, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), userID.String(), listingID.String(), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Remote, "failed to prepare upload", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload_url": uploadURL, "object_key": objectKey})
}

type completeUploadRequest struct {
	ObjectKey string `json:"object_key" binding:"required"`
}

// CompleteImageUpload handles POST /v1/listing/:id/images/complete. The
// client calls this after the presigned PUT succeeds; the image worker then
// normalizes the photo and attaches it to the listing.
func (h *ListingHandler) CompleteImageUpload(c *gin.Context) {
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

	var req completeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	expectedPrefix := fmt.Sprintf("listings/%s/%s/", userID.String(), listingID.String())
	if !strings.HasPrefix(req.ObjectKey, expectedPrefix) {
		respondError(c, apperr.New(apperr.PermissionDenied, "object key does not belong to this listing"))
		return
	}

	payload, err := json.Marshal(tasks.ImageTaskPayload{
		S3Key:     req.ObjectKey,
		ListingID: listingID.String(),
		OwnerID:   userID.String(),
	})
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Remote, "failed to build image task", err))
		return
	}

	task := asynq.NewTask(tasks.TypeImageProcess, payload)
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task, asynq.Queue("images")); err != nil {
		respondError(c, apperr.Wrap(apperr.Remote, "failed to enqueue image processing", err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"processing": true})
}
