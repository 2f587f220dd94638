package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
	"helpfinder/internal/services"
)

type TaskHandler struct {
	service services.TaskService
	store   repositories.Store
	log     *zap.Logger
}

func NewTaskHandler(service services.TaskService, store repositories.Store, log *zap.Logger) *TaskHandler {
	return &TaskHandler{service: service, store: store, log: logger.OrNop(log)}
}

type createTaskRequest struct {
	Title       string           `json:"title" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=5000"`
	Category    string           `json:"category" binding:"max=100"`
	BudgetMin   *decimal.Decimal `json:"budget_min" binding:"omitempty,nonnegdecimal"`
	BudgetMax   *decimal.Decimal `json:"budget_max" binding:"omitempty,nonnegdecimal"`
	Address     string           `json:"address"`
	City        string           `json:"city"`
	Latitude    *float64         `json:"latitude" binding:"omitempty,latitude"`
	Longitude   *float64         `json:"longitude" binding:"omitempty,longitude"`
}

type updateTaskRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	BudgetMin   *decimal.Decimal `json:"budget_min" binding:"omitempty,nonnegdecimal"`
	BudgetMax   *decimal.Decimal `json:"budget_max" binding:"omitempty,nonnegdecimal"`
	Address     *string          `json:"address"`
	City        *string          `json:"city"`
	Latitude    *float64         `json:"latitude" binding:"omitempty,latitude"`
	Longitude   *float64         `json:"longitude" binding:"omitempty,longitude"`
}

// @Summary      Create task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTaskRequest  true  "Task"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	task, err := h.service.Create(c.Request.Context(), userID, models.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Address:     req.Address,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		respondError(c, h.log, "[task][create]", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status        query  string  false  "Status"
// @Param        requester_id  query  string  false  "Requester"
// @Param        category      query  string  false  "Category"
// @Param        limit         query  int     false  "Page size"
// @Param        offset        query  int     false  "Offset"
// @Success      200  {array}  models.Task
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	var filter models.TaskFilter
	if v, ok := c.GetQuery("status"); ok {
		s := models.TaskStatus(v)
		filter.Status = &s
	}
	if v, ok := c.GetQuery("requester_id"); ok {
		filter.RequesterID = &v
	}
	if v, ok := c.GetQuery("category"); ok {
		filter.Category = &v
	}
	filter.Limit = queryInt(c, "limit", 20)
	filter.Offset = queryInt(c, "offset", 0)

	tasks, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, "[task][list]", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "[task][get]", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// PATCH /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	task, err := h.service.Update(c.Request.Context(), c.Param("id"), userID, models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Address:     req.Address,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}, roleID)
	if err != nil {
		respondError(c, h.log, "[task][update]", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), userID, isAdmin(c)); err != nil {
		respondError(c, h.log, "[task][delete]", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /tasks/:id/start
func (h *TaskHandler) Start(c *gin.Context) {
	h.transition(c, "start", h.service.Start)
}

// POST /tasks/:id/request-completion
func (h *TaskHandler) RequestCompletion(c *gin.Context) {
	h.transition(c, "request_completion", h.service.RequestCompletion)
}

// POST /tasks/:id/approve-completion
func (h *TaskHandler) ApproveCompletion(c *gin.Context) {
	h.transition(c, "approve_completion", h.service.ApproveCompletion)
}

// POST /tasks/:id/reject-completion
func (h *TaskHandler) RejectCompletion(c *gin.Context) {
	h.transition(c, "reject_completion", h.service.RejectCompletion)
}

// POST /tasks/:id/reopen
func (h *TaskHandler) Reopen(c *gin.Context) {
	h.transition(c, "reopen", h.service.Reopen)
}

// POST /tasks/:id/cancel
func (h *TaskHandler) Cancel(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	task, err := h.service.Cancel(c.Request.Context(), c.Param("id"), userID, isAdmin(c))
	if err != nil {
		respondError(c, h.log, "[task][cancel]", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// GET /admin/tasks/:id/consistency reports whether the task, its bids and
// its contracts agree.
func (h *TaskHandler) Consistency(c *gin.Context) {
	id := c.Param("id")
	err := services.CheckEngagement(c.Request.Context(), h.store, id)
	var broken *services.InconsistencyError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"task_id": id, "consistent": true})
	case errors.As(err, &broken):
		h.log.Warn("[task][consistency] invariant broken", logger.TaskID(id), zap.String("problem", broken.Problem))
		c.JSON(http.StatusOK, gin.H{"task_id": id, "consistent": false, "problem": broken.Problem})
	default:
		respondError(c, h.log, "[task][consistency]", err)
	}
}

func (h *TaskHandler) transition(c *gin.Context, op string, fn func(ctx context.Context, id, userID string) (*models.Task, error)) {
	userID, _ := getUserAndRole(c)
	task, err := fn(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, h.log, "[task]["+op+"]", err)
		return
	}
	c.JSON(http.StatusOK, task)
}
