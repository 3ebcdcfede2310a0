package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/familybudget/internal/callback"
)

type tgButton = tgbotapi.InlineKeyboardButton

func button(text string, a callback.Action, args ...any) tgButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, callback.New(a, args...))
}

func row(buttons ...tgButton) []tgButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}

func keyboard(rows ...[]tgButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// grid lays buttons out perRow to a row.
func grid(buttons []tgButton, perRow int) [][]tgButton {
	var rows [][]tgButton
	for len(buttons) > perRow {
		rows = append(rows, row(buttons[:perRow]...))
		buttons = buttons[perRow:]
	}
	if len(buttons) > 0 {
		rows = append(rows, row(buttons...))
	}
	return rows
}

func homeButton() tgButton {
	return button("🏠 Home", callback.Home)
}

// navRow is the Back and Home row closing every screen.
func navRow() []tgButton {
	return row(button("⬅️ Back", callback.Back), homeButton())
}

// cancelKeyboard closes a flow prompt.
func cancelKeyboard(extra ...[]tgButton) *tgbotapi.InlineKeyboardMarkup {
	rows := append(extra, row(button("❌ Cancel", callback.Cancel)))
	return keyboard(rows...)
}
