package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram sends reminders through a Telegram bot
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewTelegram authorizes the bot with token
func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	return newTelegram(api, logger), nil
}

func newTelegram(api *tgbotapi.BotAPI, logger *zap.Logger) *Telegram {
	logger.Info("Authorized on account", zap.String("bot", api.Self.UserName))
	return &Telegram{api: api, logger: logger}
}

func (t *Telegram) SendReminder(ctx context.Context, r Reminder) error {
	if r.ChatID == 0 {
		return ErrNoChat
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(r.ChatID, r.Text())
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error("Error sending reminder", zap.String("user_id", r.UserID), zap.Error(err))
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	t.logger.Info("Sent reminder", zap.String("user_id", r.UserID), zap.Int("streak", r.Streak))
	return nil
}
