package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/services"
)

// ChatHandler serves the polled task chat.
type ChatHandler struct {
	service services.ChatService
	log     *zap.Logger
}

func NewChatHandler(service services.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{service: service, log: logger.OrNop(log)}
}

type chatMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// GET /tasks/:id/messages?limit=&offset=
func (h *ChatHandler) List(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	msgs, err := h.service.List(c.Request.Context(), c.Param("id"), userID,
		queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, h.log, "[chat][list]", err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, msgs)
}

// POST /tasks/:id/messages
func (h *ChatHandler) Send(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.service.Send(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		respondError(c, h.log, "[chat][send]", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
