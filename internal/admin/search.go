package admin

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

var searchPrompts = map[flow.AdminSearchMode]string{
	flow.AdminSearchByID:       "🔢 Send the family ID.",
	flow.AdminSearchByName:     "🏷 Send a part of the family name.",
	flow.AdminSearchByUsername: "👤 Send a part of a member's username.",
}

func (h *Handler) searchModes(ctx context.Context, req *telegram.Request) error {
	return req.Render(ctx, callback.New(callback.AdminSearch), "🔍 <b>Find a family</b>\n\nSearch by:", keyboard(
		row(
			button("🔢 ID", callback.AdminSearchMode, string(flow.AdminSearchByID)),
			button("🏷 Name", callback.AdminSearchMode, string(flow.AdminSearchByName)),
			button("👤 Username", callback.AdminSearchMode, string(flow.AdminSearchByUsername)),
		),
		navRow(),
	))
}

func (h *Handler) search(ctx context.Context, req *telegram.Request) error {
	mode := flow.AdminSearchMode(req.Data.Arg(0))
	prompt, ok := searchPrompts[mode]
	if !ok {
		return fmt.Errorf("admin search mode %q: %w", string(mode), repository.ErrNotFound)
	}
	req.Session.Begin(flow.AdminSearch{Mode: mode})
	return req.Reply(ctx, prompt, keyboard(row(button("❌ Cancel", callback.Cancel))))
}

// searchInput runs the search once the text arrives.
func (h *Handler) searchInput(ctx context.Context, req *telegram.Request) error {
	st, ok := req.Session.Flow.(flow.AdminSearch)
	if !ok {
		req.Session.End()
		return fmt.Errorf("unexpected flow %s on the admin bot", req.Session.Flow.Name())
	}
	if req.Event.Kind != telegram.EventText {
		return &flow.ValidationError{Message: "Please send the search text as a message."}
	}
	families, err := h.svc.SearchFamilies(ctx, st.Mode, req.Event.Text)
	if err != nil {
		return err
	}
	req.Session.End()

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 <b>Results for “%s”</b>\n\n", html.EscapeString(strings.TrimSpace(req.Event.Text)))
	if len(families) == 0 {
		b.WriteString("No families found.")
	}
	rows := make([][]tgButton, 0, len(families)+2)
	for _, f := range families {
		fmt.Fprintf(&b, "• <b>%s</b> (#%d) · since %s\n", html.EscapeString(f.Name), f.ID, h.date(f.CreatedAt))
		rows = append(rows, row(button(fmt.Sprintf("%s (#%d)", f.Name, f.ID), callback.AdminFamily, f.ID)))
	}
	rows = append(rows, row(button("🔍 Search again", callback.AdminSearch)), navRow())
	return req.Send(ctx, b.String(), keyboard(rows...))
}
