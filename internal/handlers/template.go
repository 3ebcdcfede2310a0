package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// TemplateHandler serves expense templates.
type TemplateHandler struct {
	*base
}

func (h *TemplateHandler) register(r *telegram.Router) {
	r.RegisterCallback(callback.Templates, h.list)
	r.RegisterCallback(callback.TemplateUse, h.use)
	r.RegisterCallback(callback.TemplateAdd, h.add)
	r.RegisterCallback(callback.TemplateDelete, h.delete)
}

func (h *TemplateHandler) list(ctx context.Context, req *telegram.Request) error {
	return h.withFamily(ctx, req, "⚡ <b>Templates</b>", func(familyID int64) error {
		return h.show(ctx, req, familyID)
	})
}

func (h *TemplateHandler) show(ctx context.Context, req *telegram.Request, familyID int64) error {
	card, err := h.svc.Family(ctx, req.User.ID, familyID)
	if err != nil {
		return err
	}
	templates, err := h.svc.Templates(ctx, req.User.ID, familyID)
	if err != nil {
		return err
	}

	cur := req.User.CurrencySymbol()
	var b strings.Builder
	fmt.Fprintf(&b, "⚡ <b>Templates</b> · %s\n\n", html.EscapeString(card.Family.Name))
	if len(templates) == 0 {
		b.WriteString("No templates yet. A template records a recurring expense with one tap.")
	} else {
		b.WriteString("Tap a template to record the expense now.")
	}

	rows := make([][]tgButton, 0, len(templates)+2)
	for _, t := range templates {
		label := fmt.Sprintf("⚡ %s · %s", t.Name, money.Format(t.Amount, cur))
		rows = append(rows, row(
			button(label, callback.TemplateUse, familyID, t.ID),
			button("🗑", callback.TemplateDelete, familyID, t.ID),
		))
	}
	rows = append(rows, row(button("➕ New template", callback.TemplateAdd, familyID)), navRow())
	return req.Render(ctx, callback.New(callback.Templates, familyID), b.String(), keyboard(rows...))
}

func (h *TemplateHandler) use(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	templateID, _ := req.Data.Int(1)
	tx, err := h.svc.UseTemplate(ctx, req.User, templateID)
	if err != nil {
		return err
	}
	req.Notice = fmt.Sprintf("✅ Expense recorded: %s %s",
		categoryLabel(tx.CategoryIcon, tx.CategoryName), money.Format(tx.Amount, req.User.CurrencySymbol()))
	return h.show(ctx, req, familyID)
}

func (h *TemplateHandler) delete(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	templateID, _ := req.Data.Int(1)
	if err := h.svc.DeleteTemplate(ctx, req.User.ID, templateID); err != nil {
		return err
	}
	req.Notice = "🗑 Template deleted."
	return h.show(ctx, req, familyID)
}

func (h *TemplateHandler) add(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	if _, err := h.svc.Family(ctx, req.User.ID, familyID); err != nil {
		return err
	}
	req.Session.Begin(flow.AddTemplate{FamilyID: familyID, Step: flow.StepName})
	return req.Reply(ctx, fmt.Sprintf("✏️ Send a name for the template, for example <i>Coffee</i> (1 to %d characters).",
		flow.MaxTemplateName), cancelKeyboard())
}

// addInput collects name, category, amount and description.
func (h *TemplateHandler) addInput(ctx context.Context, req *telegram.Request, st flow.AddTemplate) error {
	text, isText := textInput(req)

	switch st.Step {
	case flow.StepName:
		if !isText {
			return errSendText
		}
		name, err := flow.TemplateName(text)
		if err != nil {
			return err
		}
		categories, err := h.svc.Categories(ctx, req.User.ID, st.FamilyID, models.KindExpense)
		if err != nil {
			return err
		}
		st.TemplateName = name
		st.Step = flow.StepCategory
		req.Session.Begin(st)
		buttons := make([]tgButton, 0, len(categories))
		for _, c := range categories {
			buttons = append(buttons, button(c.Label(), callback.PickCategory, c.ID))
		}
		return req.Reply(ctx, "🗂 Choose the expense category:", cancelKeyboard(grid(buttons, 2)...))

	case flow.StepCategory:
		id, ok := req.Data.Int(0)
		if isText || req.Data.Action != callback.PickCategory || !ok {
			return errUseButtons
		}
		c, err := h.svc.Category(ctx, req.User.ID, st.FamilyID, id)
		if err != nil {
			return err
		}
		if c.Kind != models.KindExpense {
			return service.ErrCategoryKindMismatch
		}
		st.CategoryID = c.ID
		st.Step = flow.StepAmount
		req.Session.Begin(st)
		return req.Reply(ctx, "💰 Enter the amount.", cancelKeyboard())

	case flow.StepAmount:
		if !isText {
			return errSendText
		}
		amount, err := flow.Amount(text)
		if err != nil {
			return err
		}
		st.Amount = amount
		st.Step = flow.StepDescription
		req.Session.Begin(st)
		return req.Reply(ctx, "📝 Add a description, or skip it.", cancelKeyboard(row(button("⏭ Skip", callback.Skip))))

	case flow.StepDescription:
		if !isText && req.Data.Action != callback.Skip {
			return errUseButtons
		}
		tpl, err := h.svc.CreateTemplate(ctx, req.User, service.NewTemplate{
			FamilyID:    st.FamilyID,
			Name:        st.TemplateName,
			CategoryID:  st.CategoryID,
			Amount:      st.Amount,
			Description: text,
		})
		if err != nil {
			return err
		}
		return done(ctx, req, fmt.Sprintf("✅ Template <b>%s</b> saved.", html.EscapeString(tpl.Name)))
	}
	return fmt.Errorf("add template: unexpected step %d", st.Step)
}
