package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// CategoryHandler manages the custom categories of a family.
type CategoryHandler struct {
	*base
}

func (h *CategoryHandler) register(r *telegram.Router) {
	r.RegisterCallback(callback.Categories, h.list)
	r.RegisterCallback(callback.CategoryAdd, h.add)
	r.RegisterCallback(callback.CategoryEdit, h.edit)
	r.RegisterCallback(callback.CategoryDelete, h.delete)
	r.RegisterCallback(callback.CategoryMove, h.move)
}

func (h *CategoryHandler) list(ctx context.Context, req *telegram.Request) error {
	return h.withFamily(ctx, req, "🗂 <b>Categories</b>", func(familyID int64) error {
		return h.show(ctx, req, familyID)
	})
}

func (h *CategoryHandler) show(ctx context.Context, req *telegram.Request, familyID int64) error {
	card, err := h.svc.Family(ctx, req.User.ID, familyID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🗂 <b>Categories</b> · %s\n", html.EscapeString(card.Family.Name))
	var rows [][]tgButton
	for _, kind := range models.Kinds {
		categories, err := h.svc.Categories(ctx, req.User.ID, familyID, kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "\n<b>%s categories:</b>\n", kind.Title())
		for _, c := range categories {
			fmt.Fprintf(&b, "%s", categoryLabel(c.Icon, c.Name))
			if c.IsDefault {
				b.WriteString(" <i>(default)</i>")
			} else {
				rows = append(rows, row(
					button("✏️ "+c.Name, callback.CategoryEdit, familyID, c.ID),
					button("🗑", callback.CategoryDelete, familyID, c.ID),
				))
			}
			b.WriteString("\n")
		}
	}
	rows = append(rows, row(button("➕ Add category", callback.CategoryAdd, familyID)), navRow())
	return req.Render(ctx, callback.New(callback.Categories, familyID), b.String(), keyboard(rows...))
}

func (h *CategoryHandler) add(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	if _, err := h.svc.Family(ctx, req.User.ID, familyID); err != nil {
		return err
	}
	req.Session.Begin(flow.AddCategory{FamilyID: familyID, Step: flow.StepKind})
	buttons := make([]tgButton, 0, len(models.Kinds))
	for _, kind := range models.Kinds {
		buttons = append(buttons, button(kind.Icon()+" "+kind.Title(), callback.PickKind, string(kind)))
	}
	return req.Reply(ctx, "🗂 Is the new category for expenses or incomes?", cancelKeyboard(row(buttons...)))
}

func (h *CategoryHandler) addInput(ctx context.Context, req *telegram.Request, st flow.AddCategory) error {
	text, isText := textInput(req)
	switch st.Step {
	case flow.StepKind:
		if isText || req.Data.Action != callback.PickKind {
			return errUseButtons
		}
		kind, err := models.ParseKind(req.Data.Arg(0))
		if err != nil {
			return errUseButtons
		}
		st.Kind = kind
		st.Step = flow.StepName
		req.Session.Begin(st)
		return req.Reply(ctx, fmt.Sprintf("✏️ Send the name of the new %s category (1 to %d characters).",
			strings.ToLower(kind.Title()), flow.MaxCategoryName), cancelKeyboard())

	case flow.StepName:
		if !isText {
			return errSendText
		}
		c, err := h.svc.CreateCategory(ctx, req.User.ID, st.FamilyID, st.Kind, text)
		if err != nil {
			return err
		}
		return done(ctx, req, fmt.Sprintf("✅ Category %s added.", categoryLabel(c.Icon, c.Name)))
	}
	return fmt.Errorf("add category: unexpected step %d", st.Step)
}

func (h *CategoryHandler) edit(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	categoryID, _ := req.Data.Int(1)
	c, _, err := h.svc.CategoryUsage(ctx, req.User.ID, familyID, categoryID)
	if err != nil {
		return err
	}
	req.Session.Begin(flow.EditCategory{FamilyID: familyID, CategoryID: c.ID})
	return req.Reply(ctx, fmt.Sprintf("✏️ Send the new name for %s.", categoryLabel(c.Icon, c.Name)), cancelKeyboard())
}

func (h *CategoryHandler) editInput(ctx context.Context, req *telegram.Request, st flow.EditCategory) error {
	name, ok := textInput(req)
	if !ok {
		return errSendText
	}
	if err := h.svc.RenameCategory(ctx, req.User.ID, st.FamilyID, st.CategoryID, name); err != nil {
		return err
	}
	return done(ctx, req, "✅ Category renamed.")
}

// delete removes an unused category at once. A category in use asks for
// another category of the same kind to move its records to.
func (h *CategoryHandler) delete(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	categoryID, _ := req.Data.Int(1)
	c, used, err := h.svc.CategoryUsage(ctx, req.User.ID, familyID, categoryID)
	if err != nil {
		return err
	}
	if used == 0 {
		if err := h.svc.DeleteCategory(ctx, req.User.ID, familyID, c.ID, 0); err != nil {
			return err
		}
		req.Notice = fmt.Sprintf("🗑 Category %s deleted.", categoryLabel(c.Icon, c.Name))
		return h.show(ctx, req, familyID)
	}

	targets, err := h.svc.Categories(ctx, req.User.ID, familyID, c.Kind)
	if err != nil {
		return err
	}
	buttons := make([]tgButton, 0, len(targets))
	for _, t := range targets {
		if t.ID != c.ID {
			buttons = append(buttons, button(t.Label(), callback.CategoryMove, familyID, c.ID, t.ID))
		}
	}
	rows := append(grid(buttons, 2), navRow())
	text := fmt.Sprintf("🗑 %s is used by %d records.\n\nChoose the category to move them to before it is deleted:",
		categoryLabel(c.Icon, c.Name), used)
	return req.Render(ctx, req.Data.String(), text, keyboard(rows...))
}

func (h *CategoryHandler) move(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	categoryID, _ := req.Data.Int(1)
	target, _ := req.Data.Int(2)
	if target == 0 {
		return errUseButtons
	}
	if err := h.svc.DeleteCategory(ctx, req.User.ID, familyID, categoryID, target); err != nil {
		return err
	}
	// The reassignment screen is gone with the category.
	req.Session.History.Pop()
	req.Notice = "🗑 Category deleted and its records moved."
	return h.show(ctx, req, familyID)
}
