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

// TransactionHandler records expenses and incomes and lists them.
type TransactionHandler struct {
	*base
}

func (h *TransactionHandler) register(r *telegram.Router) {
	r.RegisterCallback(callback.ExpenseAdd, h.add(models.KindExpense))
	r.RegisterCallback(callback.IncomeAdd, h.add(models.KindIncome))
	r.RegisterCallback(callback.Recent, h.recent)
	r.RegisterCallback(callback.Search, h.search)
}

// add starts the add-transaction flow. The family step is skipped when the
// family is known or the user has only one.
func (h *TransactionHandler) add(kind models.Kind) telegram.Handler {
	return func(ctx context.Context, req *telegram.Request) error {
		st := flow.AddTransaction{Kind: kind, Step: flow.StepFamily}
		if id, ok := req.Data.Int(0); ok {
			return h.askAmount(ctx, req, st, id)
		}

		families, err := h.svc.Families(ctx, req.User.ID)
		if err != nil {
			return err
		}
		switch len(families) {
		case 0:
			return renderNoFamilies(ctx, req)
		case 1:
			return h.askAmount(ctx, req, st, families[0].ID)
		}

		buttons := make([]tgButton, 0, len(families))
		for _, f := range families {
			buttons = append(buttons, button("🏠 "+f.Name, callback.PickFamily, f.ID))
		}
		req.Session.Begin(st)
		text := fmt.Sprintf("%s <b>New %s</b>\n\nChoose the family:", kind.Icon(), strings.ToLower(kind.Title()))
		return req.Reply(ctx, text, cancelKeyboard(grid(buttons, 1)...))
	}
}

func (h *TransactionHandler) askAmount(ctx context.Context, req *telegram.Request, st flow.AddTransaction, familyID int64) error {
	card, err := h.svc.Family(ctx, req.User.ID, familyID)
	if err != nil {
		return err
	}
	st.FamilyID = familyID
	st.Step = flow.StepAmount
	req.Session.Begin(st)

	text := fmt.Sprintf("%s <b>New %s</b> · %s\n\nEnter the amount, for example <code>1500</code> or <code>1 500,50</code>.",
		st.Kind.Icon(), strings.ToLower(st.Kind.Title()), html.EscapeString(card.Family.Name))
	return req.Reply(ctx, text, cancelKeyboard())
}

// input advances the add-transaction flow by one step.
func (h *TransactionHandler) input(ctx context.Context, req *telegram.Request, st flow.AddTransaction) error {
	text, isText := textInput(req)

	switch st.Step {
	case flow.StepFamily:
		id, ok := req.Data.Int(0)
		if isText || req.Data.Action != callback.PickFamily || !ok {
			return errUseButtons
		}
		return h.askAmount(ctx, req, st, id)

	case flow.StepAmount:
		if !isText {
			return errSendText
		}
		amount, err := flow.Amount(text)
		if err != nil {
			return err
		}
		st.Amount = amount
		st.Step = flow.StepCategory
		req.Session.Begin(st)
		return h.askCategory(ctx, req, st)

	case flow.StepCategory:
		id, ok := req.Data.Int(0)
		if isText || req.Data.Action != callback.PickCategory || !ok {
			return errUseButtons
		}
		c, err := h.svc.Category(ctx, req.User.ID, st.FamilyID, id)
		if err != nil {
			return err
		}
		if c.Kind != st.Kind {
			return service.ErrCategoryKindMismatch
		}
		st.CategoryID = c.ID
		st.Step = flow.StepDescription
		req.Session.Begin(st)
		prompt := fmt.Sprintf("%s %s · %s\n\n📝 Add a description, or skip it.",
			categoryLabel(c.Icon, c.Name), money.Format(st.Amount, req.User.CurrencySymbol()), strings.ToLower(st.Kind.Title()))
		return req.Reply(ctx, prompt, cancelKeyboard(row(button("⏭ Skip", callback.Skip))))

	case flow.StepDescription:
		description := text
		if !isText && req.Data.Action != callback.Skip {
			return errUseButtons
		}
		return h.commit(ctx, req, st, description)
	}
	return fmt.Errorf("add transaction: unexpected step %d", st.Step)
}

func (h *TransactionHandler) askCategory(ctx context.Context, req *telegram.Request, st flow.AddTransaction) error {
	categories, err := h.svc.Categories(ctx, req.User.ID, st.FamilyID, st.Kind)
	if err != nil {
		return err
	}
	buttons := make([]tgButton, 0, len(categories))
	for _, c := range categories {
		buttons = append(buttons, button(c.Label(), callback.PickCategory, c.ID))
	}
	text := fmt.Sprintf("💰 %s\n\nChoose a category:", money.Format(st.Amount, req.User.CurrencySymbol()))
	return req.Reply(ctx, text, cancelKeyboard(grid(buttons, 2)...))
}

func (h *TransactionHandler) commit(ctx context.Context, req *telegram.Request, st flow.AddTransaction, description string) error {
	tx, err := h.svc.AddTransaction(ctx, req.User, service.NewTransaction{
		Kind:        st.Kind,
		FamilyID:    st.FamilyID,
		CategoryID:  st.CategoryID,
		Amount:      st.Amount,
		Description: description,
	})
	if err != nil {
		return err
	}
	notice := fmt.Sprintf("✅ %s recorded: %s %s", st.Kind.Title(),
		categoryLabel(tx.CategoryIcon, tx.CategoryName), money.Format(tx.Amount, req.User.CurrencySymbol()))
	return done(ctx, req, notice)
}

func (h *TransactionHandler) recent(ctx context.Context, req *telegram.Request) error {
	return h.withFamily(ctx, req, "🧾 <b>Recent records</b>", func(familyID int64) error {
		card, err := h.svc.Family(ctx, req.User.ID, familyID)
		if err != nil {
			return err
		}
		txs, err := h.svc.Recent(ctx, req.User.ID, familyID, service.RecentLimit)
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "🧾 <b>Last %d records</b> · %s\n\n", service.RecentLimit, html.EscapeString(card.Family.Name))
		if len(txs) == 0 {
			b.WriteString("Nothing recorded yet.")
		}
		writeTransactions(&b, req.User, txs)

		return req.Render(ctx, callback.New(callback.Recent, familyID), b.String(), keyboard(
			row(button("➖ Expense", callback.ExpenseAdd, familyID), button("➕ Income", callback.IncomeAdd, familyID)),
			navRow(),
		))
	})
}

func (h *TransactionHandler) search(ctx context.Context, req *telegram.Request) error {
	return h.withFamily(ctx, req, "🔍 <b>Search</b>", func(familyID int64) error {
		if _, err := h.svc.Family(ctx, req.User.ID, familyID); err != nil {
			return err
		}
		req.Session.Begin(flow.Search{FamilyID: familyID})
		text := fmt.Sprintf("🔍 Send the text to look for in descriptions (%d to %d characters).",
			flow.MinSearchQuery, flow.MaxSearchQuery)
		return req.Reply(ctx, text, cancelKeyboard())
	})
}

func (h *TransactionHandler) searchInput(ctx context.Context, req *telegram.Request, st flow.Search) error {
	query, ok := textInput(req)
	if !ok {
		return errSendText
	}
	txs, err := h.svc.Search(ctx, req.User.ID, st.FamilyID, query)
	if err != nil {
		return err
	}
	req.Session.End()

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 <b>Results for “%s”</b>\n\n", html.EscapeString(strings.TrimSpace(query)))
	if len(txs) == 0 {
		b.WriteString("Nothing found.")
	}
	writeTransactions(&b, req.User, txs)
	return req.Send(ctx, b.String(), keyboard(
		row(button("🔍 Search again", callback.Search, st.FamilyID)),
		navRow(),
	))
}

// writeTransactions renders one block per transaction in the viewer's
// currency and date format.
func writeTransactions(b *strings.Builder, viewer *models.User, txs []*models.Transaction) {
	for _, t := range txs {
		fmt.Fprintf(b, "%s <b>%s</b> · %s\n", t.Kind.Icon(), money.Format(t.Amount, viewer.CurrencySymbol()), categoryLabel(t.CategoryIcon, t.CategoryName))
		fmt.Fprintf(b, "    📅 %s · 👤 %s\n", viewer.FormatDate(t.Date), html.EscapeString(t.UserName))
		if t.Description != "" {
			fmt.Fprintf(b, "    📝 %s\n", html.EscapeString(t.Description))
		}
	}
}
