package notify

import (
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger pushes short texts to a user's linked chat.
type Messenger interface {
	Send(chatID int64, text string) error
}

type TelegramBot struct {
	api *tgbotapi.BotAPI
}

// NewTelegramBot validates the token against the Bot API.
func NewTelegramBot(token string) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramBot{api: api}, nil
}

func (b *TelegramBot) Username() string {
	return b.api.Self.UserName
}

func (b *TelegramBot) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, html.EscapeString(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage chat=%d: %w", chatID, err)
	}
	return nil
}

// SetWebhook points the bot at url. An empty url is a no-op.
func (b *TelegramBot) SetWebhook(url string) error {
	if url == "" {
		return nil
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = b.api.Request(wh)
	return err
}
