package handlers

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"helpfinder/internal/logger"
	"helpfinder/internal/notify"
	"helpfinder/internal/services"
)

const linkCodeLen = 16

// IntegrationsHandler receives Telegram bot updates. Users link their chat
// by sending "/link <code>" or opening the bot with "/start <code>".
type IntegrationsHandler struct {
	users services.UserService
	bot   notify.Messenger
	log   *zap.Logger
}

func NewIntegrationsHandler(users services.UserService, bot notify.Messenger, log *zap.Logger) *IntegrationsHandler {
	return &IntegrationsHandler{users: users, bot: bot, log: logger.OrNop(log)}
}

// normalizeLinkCode strips quotes and punctuation users paste around codes.
func normalizeLinkCode(s string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.Is(unicode.Hex_Digit, r) {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != linkCodeLen {
		return "", false
	}
	return code, true
}

// POST /integrations/telegram/webhook. Telegram retries non-2xx responses,
// so every update is acknowledged with 200.
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	if h.bot == nil {
		c.Status(http.StatusOK)
		return
	}

	var up tgbotapi.Update
	if err := c.ShouldBindJSON(&up); err != nil || up.Message == nil {
		if err != nil {
			h.log.Warn("[tg][webhook] bind json", zap.Error(err))
		}
		c.Status(http.StatusOK)
		return
	}

	chatID := up.Message.Chat.ID
	cmd, arg := up.Message.Command(), strings.TrimSpace(up.Message.CommandArguments())
	h.log.Info("[tg][webhook] incoming", zap.Int64("chat_id", chatID), zap.String("command", cmd))

	switch {
	case (cmd == "link" || cmd == "start") && arg != "":
		h.link(c, chatID, arg)
	case cmd == "start":
		h.reply(chatID, "Hi! To receive HelpFinder notifications here, send /link <code> with the code from your profile.")
	default:
		h.reply(chatID, "Unknown command. Use /link <code>.")
	}
	c.Status(http.StatusOK)
}

func (h *IntegrationsHandler) link(c *gin.Context, chatID int64, raw string) {
	code, ok := normalizeLinkCode(raw)
	if !ok {
		h.reply(chatID, "That does not look like a link code. Copy the code from your profile and send /link <code>.")
		return
	}
	user, err := h.users.ConsumeTelegramLink(c.Request.Context(), code, chatID)
	if err != nil {
		h.log.Info("[tg][webhook] link refused", zap.Int64("chat_id", chatID), zap.Error(err))
		h.reply(chatID, "The code is invalid or expired. Generate a new one in your profile.")
		return
	}
	h.reply(chatID, "Done! Your account "+user.Email+" is linked.")
}

func (h *IntegrationsHandler) reply(chatID int64, text string) {
	if err := h.bot.Send(chatID, text); err != nil {
		h.log.Warn("[tg][webhook] reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
