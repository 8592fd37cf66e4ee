// Package bot implements the Telegram command front end.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"elan_bot/internal/checker"
	"elan_bot/internal/config"
	"elan_bot/internal/model"
	"elan_bot/internal/profile"
	"elan_bot/internal/scheduler"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot handles user commands and delivers ad notifications. It implements
// the Sender interface consumed by the checker and scheduler.
type Bot struct {
	api      telegramAPI
	profiles *profile.Store
	cfg      *config.Config
	log      *slog.Logger

	runner *checker.Runner
	sched  *scheduler.Scheduler

	mu sync.Mutex
	// Users whose next plain-text message is a filter rule to add.
	pendingFilter map[int64]bool
}

// New creates a Bot with the given Telegram token, profile store, and config.
// Bind must be called before Run.
func New(token string, profiles *profile.Store, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:           api,
		profiles:      profiles,
		cfg:           cfg,
		log:           log,
		pendingFilter: make(map[int64]bool),
	}, nil
}

// Bind attaches the check runner and scheduler. Done after construction
// because both consume the bot as their Sender.
func (b *Bot) Bind(runner *checker.Runner, sched *scheduler.Scheduler) {
	b.runner = runner
	b.sched = sched
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
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
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			if update.Message.IsCommand() {
				b.handleCommand(ctx, update.Message)
				continue
			}
			b.handleText(ctx, update.Message)
		}
	}
}

// SendText sends a text message to the given chat.
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

// SendPhoto sends a photo with a caption to the given chat.
func (b *Bot) SendPhoto(chatID int64, photo []byte, caption string) error {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.jpg", Bytes: photo})
	p.Caption = caption
	_, err := b.api.Send(p)
	return err
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendText(chatID, text); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := msg.CommandArguments()
	chatID := msg.Chat.ID
	userID := msg.From.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID, "user_id", userID)

	switch cmd {
	case "start":
		b.handleStart(ctx, userID, chatID)
	case "help":
		b.handleHelp(ctx, userID, chatID)
	case "t":
		b.handleSearch(ctx, userID, chatID, model.SourceTap)
	case "b":
		b.handleSearch(ctx, userID, chatID, model.SourceBina)
	case "parse":
		b.handleParse(ctx, userID, chatID, args)
	case "turl":
		b.handleSetURL(ctx, userID, chatID, model.SourceTap, args)
	case "burl":
		b.handleSetURL(ctx, userID, chatID, model.SourceBina, args)
	case "auto":
		b.handleAuto(ctx, userID, chatID, args)
	case "stop":
		b.handleStop(ctx, userID, chatID)
	case "filter":
		b.showFilterMenu(ctx, userID, chatID)
	case "cancel":
		b.handleCancel(ctx, userID, chatID)
	}
}

// handleText consumes a plain message as a filter rule when the user is in
// the middle of the add-filter flow.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	b.mu.Lock()
	pending := b.pendingFilter[userID]
	delete(b.pendingFilter, userID)
	b.mu.Unlock()

	if !pending {
		return
	}

	rule := msg.Text
	if err := b.profiles.AddFilterRule(ctx, userID, rule); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Failed to add filter: %v", err))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Filter %q added.", rule))
	b.showFilterMenu(ctx, userID, msg.Chat.ID)
}
