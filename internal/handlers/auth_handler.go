package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/models"
	"helpfinder/internal/services"
)

type AuthHandler struct {
	users services.UserService
	// botName builds t.me deep links; empty when Telegram is off.
	botName string
	log     *zap.Logger
}

func NewAuthHandler(users services.UserService, botName string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, botName: botName, log: logger.OrNop(log)}
}

// @Summary      Register
// @Description  Creates a member account and sends a welcome email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Account data"
// @Success      201   {object}  models.User
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, "[auth][register]", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// @Summary      Log in
// @Description  Verifies credentials and returns a bearer token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credentials"
// @Success      200   {object}  services.Session
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Info("[auth][login] rejected", zap.String("email", req.Email), zap.Error(err))
		respondError(c, h.log, "[auth][login]", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, "[auth][me]", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type telegramLinkResponse struct {
	Code      string    `json:"code"`
	Command   string    `json:"command"`
	DeepLink  string    `json:"deep_link,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PUT /me/telegram issues a one-time code to send to the bot.
func (h *AuthHandler) TelegramLink(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	link, err := h.users.CreateTelegramLink(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, "[auth][telegram]", err)
		return
	}
	resp := telegramLinkResponse{
		Code:      link.Code,
		Command:   "/link " + link.Code,
		ExpiresAt: link.ExpiresAt,
	}
	if h.botName != "" {
		resp.DeepLink = "https://t.me/" + h.botName + "?start=" + link.Code
	}
	c.JSON(http.StatusOK, resp)
}
