package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/services"
)

type NotificationHandler struct {
	service services.NotificationService
	log     *zap.Logger
}

func NewNotificationHandler(service services.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, log: logger.OrNop(log)}
}

// GET /notifications?unread=true&limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	list, err := h.service.List(c.Request.Context(), userID, c.Query("unread") == "true", queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, h.log, "[notification][list]", err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

// POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, h.log, "[notification][read]", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, "[notification][read_all]", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ReviewHandler struct {
	service services.ReviewService
	log     *zap.Logger
}

func NewReviewHandler(service services.ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{service: service, log: logger.OrNop(log)}
}

type reviewRequest struct {
	Score   int    `json:"score" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// POST /tasks/:id/reviews
func (h *ReviewHandler) Rate(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	review, err := h.service.Rate(c.Request.Context(), c.Param("id"), userID, req.Score, req.Comment)
	if err != nil {
		respondError(c, h.log, "[review][rate]", err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// GET /users/:id/reviews
func (h *ReviewHandler) ListForUser(c *gin.Context) {
	summary, err := h.service.ListForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "[review][list]", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
