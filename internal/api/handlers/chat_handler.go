package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// ChatHandler handles conversation and message endpoints.
type ChatHandler struct {
	chatService services.IChatService
	userService services.IUserService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService services.IChatService, userService services.IUserService) *ChatHandler {
	return &ChatHandler{chatService: chatService, userService: userService}
}

type ensureConversationRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
}

// EnsureConversation handles POST /v1/conversation. Opening an existing
// thread returns it unchanged.
func (h *ChatHandler) EnsureConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	var req ensureConversationRequest
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

	conv, err := h.chatService.EnsureConversation(c.Request.Context(), student, listingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// MyConversations handles GET /v1/me/conversations.
func (h *ChatHandler) MyConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	conversations, err := h.chatService.FindConversationsByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conversations})
}

// GetMessages handles GET /v1/conversation/:id/messages.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	messages, err := h.chatService.FindMessages(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": messages})
}

type postMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// PostMessage handles POST /v1/conversation/:id/messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide", "detail": err.Error()})
		return
	}

	msg, err := h.chatService.PostMessage(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// StreamMessages handles GET /v1/conversation/:id/messages/stream as
// server-sent events. Each event carries the full ordered message list.
func (h *ChatHandler) StreamMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	snapshots, err := h.chatService.SubscribeMessages(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		snapshot, open := <-snapshots
		if !open {
			return false
		}
		c.SSEvent("snapshot", snapshot)
		return true
	})
}

// StreamMyConversations handles GET /v1/me/conversations/stream.
func (h *ChatHandler) StreamMyConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthenticated, "missing identity"))
		return
	}

	snapshots := h.chatService.SubscribeConversations(c.Request.Context(), userID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		snapshot, open := <-snapshots
		if !open {
			return false
		}
		c.SSEvent("snapshot", snapshot)
		return true
	})
}
