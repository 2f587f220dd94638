package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/services"
)

type ContractHandler struct {
	service services.ContractService
	log     *zap.Logger
}

func NewContractHandler(service services.ContractService, log *zap.Logger) *ContractHandler {
	return &ContractHandler{service: service, log: logger.OrNop(log)}
}

// GET /contracts/my
func (h *ContractHandler) Mine(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	list, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, "[contract][mine]", err)
		return
	}
	if list == nil {
		list = []models.Contract{}
	}
	c.JSON(http.StatusOK, list)
}

// GET /tasks/:id/contracts
func (h *ContractHandler) ListForTask(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	list, err := h.service.ListForTask(c.Request.Context(), c.Param("id"), userID, isAdmin(c))
	if err != nil {
		respondError(c, h.log, "[contract][task]", err)
		return
	}
	if list == nil {
		list = []models.Contract{}
	}
	c.JSON(http.StatusOK, list)
}

// GET /contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	contract, err := h.service.Get(c.Request.Context(), c.Param("id"), userID, isAdmin(c))
	if err != nil {
		respondError(c, h.log, "[contract][get]", err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// @Summary      Contract PDF
// @Tags         Contracts
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  string  true  "Contract ID"
// @Success      200  {file}  file
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /contracts/{id}/pdf [get]
func (h *ContractHandler) PDF(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	id := c.Param("id")
	var buf bytes.Buffer
	if err := h.service.RenderPDF(c.Request.Context(), id, userID, isAdmin(c), &buf); err != nil {
		respondError(c, h.log, "[contract][pdf]", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="contract_`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
