package handlers

import (
	"context"
	"fmt"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// handleFlow passes flow input to the handler owning the active flow.
func (h *Handlers) handleFlow(ctx context.Context, req *telegram.Request) error {
	switch st := req.Session.Flow.(type) {
	case flow.CreateFamily:
		return h.families.createInput(ctx, req)
	case flow.JoinFamily:
		return h.families.joinInput(ctx, req)
	case flow.RenameFamily:
		return h.families.renameInput(ctx, req, st)
	case flow.AddTransaction:
		return h.transactions.input(ctx, req, st)
	case flow.Search:
		return h.transactions.searchInput(ctx, req, st)
	case flow.StatsRange:
		return h.stats.rangeInput(ctx, req, st)
	case flow.AddCategory:
		return h.categories.addInput(ctx, req, st)
	case flow.EditCategory:
		return h.categories.editInput(ctx, req, st)
	case flow.AddTemplate:
		return h.templates.addInput(ctx, req, st)
	case flow.SettingsEdit:
		return h.settings.editInput(ctx, req, st)
	case flow.AdminSearch:
		req.Session.End()
		return fmt.Errorf("flow %s belongs to the admin bot", st.Name())
	case nil:
		return fmt.Errorf("flow input without an active flow")
	}
	return fmt.Errorf("unhandled flow %T", req.Session.Flow)
}
