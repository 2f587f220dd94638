package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/services"
)

// UserHandler holds the admin user operations.
type UserHandler struct {
	service services.UserService
	log     *zap.Logger
}

func NewUserHandler(service services.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{service: service, log: logger.OrNop(log)}
}

// GET /admin/users?limit=&offset=
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context(), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, h.log, "[user][list]", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// POST /admin/users/:id/block
func (h *UserHandler) Block(c *gin.Context) { h.setBlocked(c, true) }

// POST /admin/users/:id/unblock
func (h *UserHandler) Unblock(c *gin.Context) { h.setBlocked(c, false) }

func (h *UserHandler) setBlocked(c *gin.Context, blocked bool) {
	adminID, _ := getUserAndRole(c)
	id := c.Param("id")
	if id == adminID && blocked {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "admins cannot block themselves"})
		return
	}
	user, err := h.service.SetBlocked(c.Request.Context(), id, blocked)
	if err != nil {
		respondError(c, h.log, "[user][block]", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type setRoleRequest struct {
	RoleID int `json:"role_id" binding:"required"`
}

// PUT /admin/users/:id/role
func (h *UserHandler) SetRole(c *gin.Context) {
	adminID, _ := getUserAndRole(c)
	id := c.Param("id")
	if id == adminID {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "admins cannot change their own role"})
		return
	}
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.service.SetRole(c.Request.Context(), id, req.RoleID)
	if err != nil {
		respondError(c, h.log, "[user][role]", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
