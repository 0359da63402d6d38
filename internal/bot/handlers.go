package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"board_mirror/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, fmt.Sprintf(`Board mirror for /%s/.

Catalog and archive threads are copied into local storage every %s.

Use /status to see how far the mirror got, or /help for all commands.`, b.cfg.Board, b.cfg.SyncInterval))
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `/status - cursor, stored threads and last pass results
/sync - run a catalog and archive pass now
/thread <id> - show a mirrored thread`)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	cur, err := b.cursors.Read()
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error reading cursor: %v", err))
		return
	}
	count, err := b.records.CountThreads(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error counting threads: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatStatus(cur, count, b.sched.LastReports()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sync now", cmdSync),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send status", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleSync(chatID int64) {
	if !b.sched.Trigger() {
		b.reply(chatID, "A sync is already queued.")
		return
	}
	b.reply(chatID, "Sync queued. Use /status to follow progress.")
}

func (b *Bot) handleThread(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /thread <id>")
		return
	}

	rec, err := b.records.GetThread(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("Thread #%d is not mirrored yet.", id))
		return
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatThread(id, rec))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Refresh", fmt.Sprintf("%s:%d", cmdThread, id)),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send thread", "chat_id", chatID, "thread_id", id, "error", err)
	}
}
