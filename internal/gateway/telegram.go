package gateway

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botSender is the part of tgbotapi.BotAPI the gateway uses.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramGateway struct {
	Bot    botSender
	ChatID int64
}

func NewTelegramGateway(token string, chatID string) (*TelegramGateway, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid chat ID: %q", chatID)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login failed: %w", err)
	}

	return &TelegramGateway{Bot: bot, ChatID: id}, nil
}

func (tg *TelegramGateway) Name() string {
	return "telegram"
}

func (tg *TelegramGateway) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(tg.ChatID, text)
	_, err := tg.Bot.Send(msg)
	return err
}
