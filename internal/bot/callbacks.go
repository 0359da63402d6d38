package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdStatus = "status"
	cmdSync   = "sync"
	cmdThread = "thread"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, arg, _ := strings.Cut(cb.Data, ":")

	log := b.log.With("action", action, "arg", arg, "chat_id", chatID)
	if cb.From != nil {
		log = log.With("user_id", cb.From.ID, "username", cb.From.UserName)
	}
	log.Info("callback")

	switch action {
	case cmdSync:
		b.handleSync(chatID)
	case cmdThread:
		b.handleThread(ctx, chatID, arg)
	}
}
