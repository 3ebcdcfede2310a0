package handlers

import (
	"context"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

const helpText = `📚 <b>Family Budget help</b>

<b>Records:</b>
• /expense - Add an expense
• /income - Add an income
• /recent - Last 10 records
• /search - Search descriptions

<b>Analysis:</b>
• /stats - Statistics by period
• /report - HTML report for last month

<b>Family:</b>
• /families - Create, join and manage families
• /categories - Custom categories
• /templates - One-tap expense templates

<b>Other:</b>
• /settings - Currency, timezone, monthly summary
• /cancel - Stop the current input
• /start - Main menu

<i>Amounts accept both "," and "." as decimal point, e.g. 1 500,50</i>`

func (h *StartHandler) help(ctx context.Context, req *telegram.Request) error {
	return req.Render(ctx, callback.New(callback.Help), helpText, keyboard(navRow()))
}
