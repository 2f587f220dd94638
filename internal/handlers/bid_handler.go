package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/services"
)

type BidHandler struct {
	service services.BidService
	log     *zap.Logger
}

func NewBidHandler(service services.BidService, log *zap.Logger) *BidHandler {
	return &BidHandler{service: service, log: logger.OrNop(log)}
}

type bidRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"decimalgte1"`
	Message string          `json:"message" binding:"max=2000"`
}

// @Summary      Place bid
// @Description  Offers a price on an open task. The requester is emailed.
// @Tags         Bids
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string      true  "Task ID"
// @Param        body  body      bidRequest  true  "Offer"
// @Success      201   {object}  models.Bid
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /tasks/{id}/bids [post]
func (h *BidHandler) Place(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bid, err := h.service.Place(c.Request.Context(), c.Param("id"), userID, req.Amount, req.Message)
	if err != nil {
		respondError(c, h.log, "[bid][place]", err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// @Summary      List bids of a task
// @Description  Lowest amount first
// @Tags         Bids
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string  true  "Task ID"
// @Success      200  {array}  models.Bid
// @Failure      404  {object} errorResponse
// @Router       /tasks/{id}/bids [get]
func (h *BidHandler) ListForTask(c *gin.Context) {
	bids, err := h.service.ListForTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "[bid][list]", err)
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	c.JSON(http.StatusOK, bids)
}

// GET /bids/my
func (h *BidHandler) Mine(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	bids, err := h.service.ListForHelper(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, "[bid][mine]", err)
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	c.JSON(http.StatusOK, bids)
}

// PATCH /bids/:id edits or renegotiates a bid.
func (h *BidHandler) Update(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bid, err := h.service.Update(c.Request.Context(), c.Param("id"), userID, req.Amount, req.Message)
	if err != nil {
		respondError(c, h.log, "[bid][update]", err)
		return
	}
	c.JSON(http.StatusOK, bid)
}

// DELETE /bids/:id
func (h *BidHandler) Withdraw(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	if err := h.service.Withdraw(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, h.log, "[bid][withdraw]", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Accept bid
// @Description  Assigns the bidder and creates a pending contract
// @Tags         Bids
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Bid ID"
// @Success      200  {object}  models.Contract
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /bids/{id}/accept [post]
func (h *BidHandler) Accept(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	contract, err := h.service.Accept(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, h.log, "[bid][accept]", err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// POST /bids/:id/reject
func (h *BidHandler) Reject(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	bid, err := h.service.Reject(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, h.log, "[bid][reject]", err)
		return
	}
	c.JSON(http.StatusOK, bid)
}
