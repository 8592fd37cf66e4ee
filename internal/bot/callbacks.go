package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Preset cities offered in the add-filter keyboard.
var filterCities = []string{"Xırdalan", "Masazır", "Sumqayıt"}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(ack); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if !b.cfg.IsUserAllowed(userID) {
		return
	}

	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 {
		return
	}

	b.log.Info("callback", "data", data, "chat_id", chatID, "user_id", userID)

	switch parts[0] {
	case "menu":
		b.handleMenuCallback(ctx, userID, chatID, parts[1])
	case "filter":
		arg := ""
		if len(parts) == 3 {
			arg = parts[2]
		}
		b.handleFilterCallback(ctx, userID, chatID, parts[1], arg)
	}
}

func (b *Bot) handleMenuCallback(ctx context.Context, userID, chatID int64, action string) {
	switch action {
	case "auto":
		b.handleAuto(ctx, userID, chatID, "")
	case "stop":
		b.handleStop(ctx, userID, chatID)
	case "filter":
		b.showFilterMenu(ctx, userID, chatID)
	}
}

func (b *Bot) handleFilterCallback(ctx context.Context, userID, chatID int64, action, arg string) {
	switch action {
	case "add":
		b.showCityKeyboard(chatID)
	case "city":
		if arg == "other" {
			b.mu.Lock()
			b.pendingFilter[userID] = true
			b.mu.Unlock()
			b.reply(chatID, "Type a city or district name (or /cancel to abort):")
			return
		}
		if err := b.profiles.AddFilterRule(ctx, userID, arg); err != nil {
			b.reply(chatID, fmt.Sprintf("Failed to add filter: %v", err))
			return
		}
		b.reply(chatID, fmt.Sprintf("Filter %q added.", arg))
		b.showFilterMenu(ctx, userID, chatID)
	case "rm":
		b.showRemoveKeyboard(ctx, userID, chatID)
	case "del":
		if err := b.profiles.RemoveFilterRule(ctx, userID, arg); err != nil {
			b.reply(chatID, fmt.Sprintf("Failed to remove filter: %v", err))
			return
		}
		b.reply(chatID, fmt.Sprintf("Filter %q removed.", arg))
		b.showFilterMenu(ctx, userID, chatID)
	case "clear":
		if err := b.profiles.ClearFilterRules(ctx, userID); err != nil {
			b.reply(chatID, fmt.Sprintf("Failed to clear filters: %v", err))
			return
		}
		b.reply(chatID, "All filters removed.")
		b.showFilterMenu(ctx, userID, chatID)
	case "back":
		b.showFilterMenu(ctx, userID, chatID)
	}
}

// showFilterMenu lists the current reject rules with management buttons.
// The location list is displayed; title rules mirror it.
func (b *Bot) showFilterMenu(ctx context.Context, userID, chatID int64) {
	prof, err := b.profiles.Get(ctx, userID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	var sb strings.Builder
	sb.WriteString("Current filters:\n\n")
	if len(prof.Filters.Location) == 0 {
		sb.WriteString("none\n")
	} else {
		for _, r := range prof.Filters.Location {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
	}
	sb.WriteString("\nAds whose title or location contain a filter are skipped.")

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add", "filter:add"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Remove", "filter:rm"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Clear all", "filter:clear"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send filter menu", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) showCityKeyboard(chatID int64) {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData(filterCities[0], "filter:city:"+filterCities[0]),
			tgbotapi.NewInlineKeyboardButtonData(filterCities[1], "filter:city:"+filterCities[1]),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData(filterCities[2], "filter:city:"+filterCities[2]),
			tgbotapi.NewInlineKeyboardButtonData("Other…", "filter:city:other"),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("◀️ Back", "filter:back"),
		},
	}

	msg := tgbotapi.NewMessage(chatID, `Pick a city or "Other…" to type your own:`)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send city keyboard", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) showRemoveKeyboard(ctx context.Context, userID, chatID int64) {
	prof, err := b.profiles.Get(ctx, userID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(prof.Filters.Location) == 0 {
		b.reply(chatID, "No active filters to remove.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range prof.Filters.Location {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ "+r, "filter:del:"+r),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Back", "filter:back"),
	))

	msg := tgbotapi.NewMessage(chatID, "Pick a filter to remove:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send remove keyboard", "chat_id", chatID, "error", err)
	}
}
