// Package bot implements the Telegram control bot: status queries, manual
// sync triggers and delivery of error alerts.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"board_mirror/internal/config"
	"board_mirror/internal/model"
	"board_mirror/internal/storage"
	"board_mirror/internal/syncer"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Controller is the part of the scheduler the bot drives.
type Controller interface {
	Trigger() bool
	LastReports() []syncer.Report
}

// CursorReader reads the current sync cursor.
type CursorReader interface {
	Read() (model.SyncCursor, error)
}

// Bot answers commands and forwards alerts.
type Bot struct {
	api     telegramAPI
	records storage.Storage
	cursors CursorReader
	sched   Controller
	cfg     *config.Config
	log     *slog.Logger
}

// New creates a Bot with the given Telegram token and collaborators.
func New(token string, records storage.Storage, cursors CursorReader, sched Controller, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		records: records,
		cursors: cursors,
		sched:   sched,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Run starts the long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if update.CallbackQuery.From == nil || !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.From == nil || !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// Report sends an alert line to the configured alert chat.
func (b *Bot) Report(level slog.Level, message string) {
	if b.cfg.AlertChatID == 0 {
		return
	}
	b.SendMessage(b.cfg.AlertChatID, FormatAlert(level, message))
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdStatus:
		b.handleStatus(ctx, chatID)
	case cmdSync:
		b.handleSync(chatID)
	case cmdThread:
		b.handleThread(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
