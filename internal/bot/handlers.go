package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"elan_bot/internal/model"
)

func (b *Bot) handleStart(ctx context.Context, userID, chatID int64) {
	if err := b.profiles.SetActiveChat(ctx, userID, chatID); err != nil {
		b.log.Error("set active chat", "user_id", userID, "error", err)
	}

	msg := tgbotapi.NewMessage(chatID, `Hi! I watch apartment listings on tap.az and bina.az. 👋

How to get started:
1. Open tap.az and bina.az, set up your search filters there (price, district, rooms)
2. Copy the URL from the address bar
3. Set it here with /turl <tap.az URL> and /burl <bina.az URL>
4. Then use:
   /t — search tap.az now
   /b — search bina.az now
   /auto — check both automatically every 5 minutes

Use /help for the full command reference.`)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleHelp(ctx context.Context, userID, chatID int64) {
	prof, err := b.profiles.Get(ctx, userID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf(`Searching:
/t — search tap.az using your saved URL
/b — search bina.az using your saved URL
/parse <url> — one-off search for any tap.az/bina.az URL

Source URLs:
/turl <url> — set the tap.az search URL
/burl <url> — set the bina.az search URL

Auto-check:
/auto — check every 5 minutes
/auto <seconds> — custom interval (minimum 60)
/stop — stop auto-checking

Filters:
/filter — block ads by title or location keywords

Current URLs:
tap.az:
%s

bina.az:
%s`, prof.SourceURLs[model.SourceTap], prof.SourceURLs[model.SourceBina]))
}

// handleSearch runs one interactive cycle against the user's saved URL.
func (b *Bot) handleSearch(ctx context.Context, userID, chatID int64, source model.Source) {
	if err := b.profiles.SetActiveChat(ctx, userID, chatID); err != nil {
		b.log.Error("set active chat", "user_id", userID, "error", err)
	}

	result := b.runner.RunCycle(ctx, userID, source, chatID)
	b.reportCycle(chatID, result)
}

func (b *Bot) handleParse(ctx context.Context, userID, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /parse <url>")
		return
	}

	result := b.runner.RunURL(ctx, userID, args, chatID)
	b.reportCycle(chatID, result)
}

// reportCycle reports the outcome of an interactive cycle on the same chat.
func (b *Bot) reportCycle(chatID int64, result model.CycleResult) {
	if result.Failure != nil {
		b.reply(chatID, fmt.Sprintf("Search failed: %v", result.Failure))
		return
	}
	if result.Delivered == 0 {
		b.reply(chatID, "No new ads found.")
	}
}

func (b *Bot) handleSetURL(ctx context.Context, userID, chatID int64, source model.Source, args string) {
	site := "tap.az"
	if source == model.SourceBina {
		site = "bina.az"
	}

	if args == "" {
		prof, err := b.profiles.Get(ctx, userID)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, fmt.Sprintf("Current %s URL:\n%s", site, prof.SourceURLs[source]))
		return
	}

	if err := b.profiles.SetSourceURL(ctx, userID, source, args); err != nil {
		b.reply(chatID, fmt.Sprintf("Could not update %s URL: %v", site, err))
		return
	}
	b.reply(chatID, fmt.Sprintf("%s URL updated and saved.", site))
}

func (b *Bot) handleAuto(ctx context.Context, userID, chatID int64, args string) {
	seconds, notice := ParseAutoInterval(args)
	if notice != "" {
		b.reply(chatID, notice)
	}

	effective, err := b.sched.Enable(ctx, userID, seconds, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to enable auto-check: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Auto-check enabled (interval: %d seconds).", effective))
}

func (b *Bot) handleStop(ctx context.Context, userID, chatID int64) {
	if err := b.sched.Disable(ctx, userID); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to stop auto-check: %v", err))
		return
	}
	b.reply(chatID, "Auto-check stopped.")
}

func (b *Bot) handleCancel(ctx context.Context, userID, chatID int64) {
	b.mu.Lock()
	pending := b.pendingFilter[userID]
	delete(b.pendingFilter, userID)
	b.mu.Unlock()

	if pending {
		b.reply(chatID, "Cancelled.")
		b.showFilterMenu(ctx, userID, chatID)
	}
}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Auto-check", "menu:auto"),
			tgbotapi.NewInlineKeyboardButtonData("⏹ Stop", "menu:stop"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Filters", "menu:filter"),
		),
	)
}
