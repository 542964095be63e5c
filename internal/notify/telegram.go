package notify

import (
	"context"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Telegram sends notifications through a Telegram bot to users who linked a
// chat id to their account.
type Telegram struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, err
	}

	return &Telegram{bot: b, logger: logger}, nil
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string) {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		t.logger.Warn("send telegram notification",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
