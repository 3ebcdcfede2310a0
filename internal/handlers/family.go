package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/navigation"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// FamilyHandler manages families: listing, creating, joining and the
// admin actions of a family card.
type FamilyHandler struct {
	*base
}

func (h *FamilyHandler) register(r *telegram.Router) {
	r.RegisterCallback(callback.Families, h.list)
	r.RegisterCallback(callback.FamilyCreate, h.create)
	r.RegisterCallback(callback.FamilyJoin, h.join)
	r.RegisterCallback(callback.FamilyView, h.view)
	r.RegisterCallback(callback.FamilyRename, h.rename)
	r.RegisterCallback(callback.FamilyRegenerate, h.regenerate)
	r.RegisterCallback(callback.FamilyRemoveMember, h.removeMember)
	r.RegisterCallback(callback.FamilyLeave, h.leave)
	r.RegisterCallback(callback.FamilyDelete, h.confirmDelete)
	r.RegisterCallback(callback.FamilyDeleteConfirm, h.delete)
}

func (h *FamilyHandler) list(ctx context.Context, req *telegram.Request) error {
	families, err := h.svc.Families(ctx, req.User.ID)
	if err != nil {
		return err
	}
	if len(families) == 0 {
		return renderNoFamilies(ctx, req)
	}

	var b strings.Builder
	b.WriteString("👨‍👩‍👧 <b>Your families</b>\n\n")
	rows := make([][]tgButton, 0, len(families)+2)
	for _, f := range families {
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(f.Name))
		rows = append(rows, row(button("🏠 "+f.Name, callback.FamilyView, f.ID)))
	}
	rows = append(rows,
		row(button("➕ Create family", callback.FamilyCreate), button("🔗 Join family", callback.FamilyJoin)),
		navRow(),
	)
	return req.Render(ctx, callback.New(callback.Families), b.String(), keyboard(rows...))
}

func (h *FamilyHandler) create(ctx context.Context, req *telegram.Request) error {
	req.Session.Begin(flow.CreateFamily{})
	return req.Reply(ctx, fmt.Sprintf("✏️ Send the name of the new family (1 to %d characters).", flow.MaxFamilyName), cancelKeyboard())
}

func (h *FamilyHandler) createInput(ctx context.Context, req *telegram.Request) error {
	name, ok := textInput(req)
	if !ok {
		return errSendText
	}
	family, err := h.svc.CreateFamily(ctx, req.User, name)
	if err != nil {
		return err
	}
	req.Session.End()
	req.Notice = fmt.Sprintf("✅ Family <b>%s</b> created.\nShare the invite code <code>%s</code> with your family.",
		html.EscapeString(family.Name), family.InviteCode)
	return h.show(ctx, req, family.ID)
}

func (h *FamilyHandler) join(ctx context.Context, req *telegram.Request) error {
	req.Session.Begin(flow.JoinFamily{})
	return req.Reply(ctx, "🔗 Send the invite code you received, for example <code>AB12CD34</code>.", cancelKeyboard())
}

func (h *FamilyHandler) joinInput(ctx context.Context, req *telegram.Request) error {
	code, ok := textInput(req)
	if !ok {
		return errSendText
	}
	family, err := h.svc.JoinFamily(ctx, req.User, code)
	switch {
	case errors.Is(err, repository.ErrAlreadyMember):
		req.Session.End()
		req.Notice = "ℹ️ You are already a member of this family."
		return h.show(ctx, req, family.ID)
	case err != nil:
		return err
	}
	req.Session.End()
	req.Notice = fmt.Sprintf("🎉 You joined <b>%s</b>.", html.EscapeString(family.Name))
	return h.show(ctx, req, family.ID)
}

func (h *FamilyHandler) view(ctx context.Context, req *telegram.Request) error {
	id, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	return h.show(ctx, req, id)
}

// show renders the family card.
func (h *FamilyHandler) show(ctx context.Context, req *telegram.Request, familyID int64) error {
	card, err := h.svc.Family(ctx, req.User.ID, familyID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏠 <b>%s</b>\n\n", html.EscapeString(card.Family.Name))
	fmt.Fprintf(&b, "🔑 Invite code: <code>%s</code>\n", card.Family.InviteCode)
	fmt.Fprintf(&b, "👤 Your role: %s\n\n", card.Role.Title())
	fmt.Fprintf(&b, "<b>Members (%d):</b>\n", len(card.Members))
	for _, m := range card.Members {
		marker := "•"
		if m.Role == models.RoleAdmin {
			marker = "⭐"
		}
		fmt.Fprintf(&b, "%s %s", marker, html.EscapeString(m.User.DisplayName()))
		if m.User.Username != "" && m.User.Name != "" {
			fmt.Fprintf(&b, " (@%s)", html.EscapeString(m.User.Username))
		}
		b.WriteString("\n")
	}

	id := card.Family.ID
	rows := [][]tgButton{
		row(button("📊 Statistics", callback.Stats, id), button("🧾 Recent", callback.Recent, id)),
	}
	if card.IsAdmin() {
		rows = append(rows,
			row(button("✏️ Rename", callback.FamilyRename, id), button("🔄 New invite code", callback.FamilyRegenerate, id)),
			row(button("👤 Remove member", callback.FamilyRemoveMember, id), button("🗑 Delete family", callback.FamilyDelete, id)),
		)
	}
	rows = append(rows, row(button("🚪 Leave family", callback.FamilyLeave, id)), navRow())
	return req.Render(ctx, callback.New(callback.FamilyView, id), b.String(), keyboard(rows...))
}

// admin loads a family card and requires the viewer to administer it.
func (h *FamilyHandler) admin(ctx context.Context, req *telegram.Request) (int64, error) {
	id, err := familyArg(req, 0)
	if err != nil {
		return 0, err
	}
	card, err := h.svc.Family(ctx, req.User.ID, id)
	if err != nil {
		return 0, err
	}
	if !card.IsAdmin() {
		return 0, service.ErrForbidden
	}
	return id, nil
}

func (h *FamilyHandler) rename(ctx context.Context, req *telegram.Request) error {
	id, err := h.admin(ctx, req)
	if err != nil {
		return err
	}
	req.Session.Begin(flow.RenameFamily{FamilyID: id})
	return req.Reply(ctx, fmt.Sprintf("✏️ Send the new family name (1 to %d characters).", flow.MaxFamilyName), cancelKeyboard())
}

func (h *FamilyHandler) renameInput(ctx context.Context, req *telegram.Request, st flow.RenameFamily) error {
	name, ok := textInput(req)
	if !ok {
		return errSendText
	}
	if err := h.svc.RenameFamily(ctx, req.User.ID, st.FamilyID, name); err != nil {
		return err
	}
	req.Session.End()
	req.Notice = "✅ Family renamed."
	return h.show(ctx, req, st.FamilyID)
}

func (h *FamilyHandler) regenerate(ctx context.Context, req *telegram.Request) error {
	id, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	code, err := h.svc.RegenerateInviteCode(ctx, req.User.ID, id)
	if err != nil {
		return err
	}
	req.Notice = fmt.Sprintf("🔄 New invite code: <code>%s</code>\nThe old code no longer works.", code)
	return h.show(ctx, req, id)
}

// removeMember lists the members that can be removed, or removes the one
// named by the second argument.
func (h *FamilyHandler) removeMember(ctx context.Context, req *telegram.Request) error {
	id, err := h.admin(ctx, req)
	if err != nil {
		return err
	}
	if memberID, ok := req.Data.Int(1); ok {
		if err := h.svc.RemoveMember(ctx, req.User.ID, id, memberID); err != nil {
			return err
		}
		req.Notice = "✅ Member removed."
		return h.show(ctx, req, id)
	}

	card, err := h.svc.Family(ctx, req.User.ID, id)
	if err != nil {
		return err
	}
	var rows [][]tgButton
	for _, m := range card.Members {
		if m.User.ID == req.User.ID {
			continue
		}
		rows = append(rows, row(button("❌ "+m.User.DisplayName(), callback.FamilyRemoveMember, id, m.User.ID)))
	}
	text := "👤 <b>Remove a member</b>\n\nChoose who to remove from the family."
	if len(rows) == 0 {
		text = "👤 You are the only member of this family."
	}
	rows = append(rows, navRow())
	return req.Render(ctx, callback.New(callback.FamilyRemoveMember, id), text, keyboard(rows...))
}

func (h *FamilyHandler) leave(ctx context.Context, req *telegram.Request) error {
	id, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	deleted, err := h.svc.LeaveFamily(ctx, req.User.ID, id)
	if err != nil {
		return err
	}
	req.Notice = "🚪 You left the family."
	if deleted {
		req.Notice = "🗑 You were the last member, so the family was deleted."
	}
	return h.afterRemoval(ctx, req)
}

func (h *FamilyHandler) confirmDelete(ctx context.Context, req *telegram.Request) error {
	id, err := h.admin(ctx, req)
	if err != nil {
		return err
	}
	text := "⚠️ <b>Delete this family?</b>\n\n" +
		"All its expenses, incomes, custom categories and templates will be deleted for every member. " +
		"This cannot be undone."
	return req.Render(ctx, callback.New(callback.FamilyDelete, id), text, keyboard(
		row(button("🗑 Yes, delete", callback.FamilyDeleteConfirm, id)),
		row(button("⬅️ No, go back", callback.Back)),
	))
}

func (h *FamilyHandler) delete(ctx context.Context, req *telegram.Request) error {
	id, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteFamily(ctx, req.User.ID, id); err != nil {
		return err
	}
	req.Notice = "🗑 Family deleted."
	return h.afterRemoval(ctx, req)
}

// afterRemoval shows the family list with a history that no longer leads
// back to screens of the family that is gone.
func (h *FamilyHandler) afterRemoval(ctx context.Context, req *telegram.Request) error {
	req.Session.History.Clear()
	req.Session.History.Push(navigation.Home)
	return h.list(ctx, req)
}
