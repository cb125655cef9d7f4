package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/domain/nlu"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/metrics"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// runFinance executes the financial intent and produces the reply body.
// Threshold alerts the expense raises are attached to the state; the output
// stage renders them under the reply.
func (p *Pipeline) runFinance(ctx context.Context, st *TurnState) error {
	st.Stage = StageFinance
	st.ClearCtx = true

	var err error
	switch st.Reading.Intent {
	case nlu.IntentRecordExpense:
		err = p.handleRecordExpense(ctx, st)
	case nlu.IntentQueryTotal:
		err = p.handleQueryTotal(ctx, st)
	case nlu.IntentQueryCategory:
		err = p.handleQueryCategory(ctx, st)
	case nlu.IntentQueryLast:
		err = p.handleQueryLast(ctx, st)
	case nlu.IntentQueryLimits:
		err = p.handleQueryLimits(ctx, st)
	case nlu.IntentListCategories:
		err = p.handleListCategories(ctx, st)
	case nlu.IntentAddCategory:
		err = p.handleAddCategory(ctx, st)
	case nlu.IntentRemoveCategory:
		err = p.handleRemoveCategory(ctx, st)
	case nlu.IntentAddLimit:
		err = p.handleAddLimit(ctx, st)
	case nlu.IntentRemoveLimit:
		err = p.handleRemoveLimit(ctx, st)
	case nlu.IntentRemoveExpense:
		err = p.handleRemoveExpense(ctx, st)
	default:
		st.Reply = "Não consegui entender o que você precisa. Digite \"ajuda\" para ver o que eu sei fazer."
		return nil
	}

	if err != nil {
		if reply, ok := wordedReply(err); ok {
			st.Reply = reply
			return nil
		}
		return err
	}
	return nil
}

// wordedReply converts expected domain errors into user-facing text.
// Unexpected errors return false and surface as the generic apology.
func wordedReply(err error) (string, bool) {
	switch {
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation):
		return "Tem algo errado com esses dados: " + userHint(err), true
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound):
		return "Não encontrei esse registro. Confira o nome e tente de novo.", true
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict):
		return userHint(err), true
	}
	return "", false
}

func userHint(err error) string {
	var perr *platformerrors.PlatformError
	if ok := asPlatformError(err, &perr); !ok {
		return "verifique a mensagem e tente novamente."
	}
	switch perr.Message {
	case "category already exists":
		return "Essa categoria já existe."
	case "category still has transactions":
		return "Essa categoria ainda tem gastos registrados. Remova ou mova os gastos antes de excluí-la."
	case "an active limit already exists for this category and period":
		return "Já existe um limite ativo para essa categoria nesse período. Remova o limite atual antes de criar outro."
	case "expense amount must be positive":
		return "o valor precisa ser maior que zero."
	case "limit amount must be positive":
		return "o valor do limite precisa ser maior que zero."
	case "category name is required":
		return "me diga o nome da categoria."
	default:
		return "verifique a mensagem e tente novamente."
	}
}

func asPlatformError(err error, target **platformerrors.PlatformError) bool {
	for err != nil {
		if perr, ok := err.(*platformerrors.PlatformError); ok {
			*target = perr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func (p *Pipeline) handleRecordExpense(ctx context.Context, st *TurnState) error {
	if st.Reading.Amount == nil {
		st.Reply = "Quanto você gastou? Me diga o valor, por exemplo: \"gastei 50 no mercado\"."
		return nil
	}

	cat, err := p.categories.ResolveOrFallback(ctx, st.User.ID, st.Reading.Category)
	if err != nil {
		return err
	}

	e, err := p.expenses.Record(ctx, st.User.ID, cat.ID, *st.Reading.Amount, st.Reading.Description, st.Now)
	if err != nil {
		return err
	}
	e.CategoryName = cat.Name

	alerts, err := p.evaluator.Evaluate(ctx, e)
	if err != nil {
		// The expense is already recorded; degrade to a reply without alerts.
		p.logger.Error().Err(err).Str("expense_id", e.PublicID).Msg("limit evaluation failed after insert")
	} else {
		st.Alerts = alerts
		for _, a := range alerts {
			metrics.RecordLimitAlert(severityLabel(a.Severity), string(a.PeriodKind))
		}
	}

	desc := e.Description
	if desc == "" {
		desc = "sem descrição"
	}
	st.Reply = fmt.Sprintf("✅ Gasto registrado: %s em %s (%s)", formatBRL(e.Amount), cat.Name, desc)
	return nil
}

func (p *Pipeline) handleQueryTotal(ctx context.Context, st *TurnState) error {
	if st.Reading.FromDate != nil && st.Reading.ToDate != nil {
		total, count, err := p.expenses.TotalForRange(ctx, st.User.ID, *st.Reading.FromDate, *st.Reading.ToDate)
		if err != nil {
			return err
		}
		st.Reply = fmt.Sprintf("Entre %s e %s você gastou %s em %d lançamento(s).",
			st.Reading.FromDate.Format("02/01/2006"), st.Reading.ToDate.Format("02/01/2006"),
			formatBRL(total), count)
		return nil
	}

	period, ok := expense.ParsePeriod(st.Reading.Period)
	if !ok {
		period = expense.PeriodMonth
	}
	total, count, err := p.expenses.TotalForPeriod(ctx, st.User.ID, period, st.Now)
	if err != nil {
		return err
	}

	if count == 0 {
		st.Reply = fmt.Sprintf("Você ainda não tem gastos registrados %s.", periodPhrase(period))
		return nil
	}

	byCategory, err := p.expenses.TotalsByCategory(ctx, st.User.ID, period, st.Now)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Seu total %s é %s (%d lançamento(s)).", periodPhrase(period), formatBRL(total), count)
	if len(byCategory) > 0 {
		b.WriteString("\n\nPor categoria:")
		for _, ct := range byCategory {
			fmt.Fprintf(&b, "\n• %s: %s", ct.CategoryName, formatBRL(ct.Total))
		}
	}
	st.Reply = b.String()
	return nil
}

func (p *Pipeline) handleQueryCategory(ctx context.Context, st *TurnState) error {
	if strings.TrimSpace(st.Reading.Category) == "" {
		st.Reply = "De qual categoria você quer saber o total?"
		return nil
	}

	cat, err := p.categories.Resolve(ctx, st.User.ID, st.Reading.Category)
	if err != nil {
		return err
	}

	period, ok := expense.ParsePeriod(st.Reading.Period)
	if !ok {
		period = expense.PeriodMonth
	}
	total, count, err := p.expenses.CategoryTotalForPeriod(ctx, st.User.ID, cat.ID, period, st.Now)
	if err != nil {
		return err
	}

	if count == 0 {
		st.Reply = fmt.Sprintf("Nenhum gasto em %s %s.", cat.Name, periodPhrase(period))
		return nil
	}
	st.Reply = fmt.Sprintf("Em %s você gastou %s %s (%d lançamento(s)).",
		cat.Name, formatBRL(total), periodPhrase(period), count)
	return nil
}

func (p *Pipeline) handleQueryLast(ctx context.Context, st *TurnState) error {
	last, err := p.expenses.Last(ctx, st.User.ID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			st.Reply = "Você ainda não registrou nenhum gasto."
			return nil
		}
		return err
	}

	desc := last.Description
	if desc == "" {
		desc = "sem descrição"
	}
	st.Reply = fmt.Sprintf("Seu último gasto: %s em %s (%s), em %s.",
		formatBRL(last.Amount), last.CategoryName, desc, last.CreatedAt.Format("02/01/2006 15:04"))
	return nil
}

func (p *Pipeline) handleQueryLimits(ctx context.Context, st *TurnState) error {
	rules, err := p.ledger.ActiveRules(ctx, st.User.ID)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		st.Reply = "Você não tem limites configurados. Diga, por exemplo: \"limite de 500 por mês em Alimentação\"."
		return nil
	}

	// Reads roll windows forward too, so stale periods never show.
	for _, r := range rules {
		if _, err := p.ledger.RolloverIfDue(ctx, r, st.Now); err != nil {
			if limitrule.IsStale(err) {
				continue
			}
			return err
		}
	}

	st.Reply = formatLimitList(rules)
	return nil
}

func (p *Pipeline) handleListCategories(ctx context.Context, st *TurnState) error {
	cats, err := p.categories.List(ctx, st.User.ID)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		st.Reply = "Você ainda não tem categorias. Diga \"criar categoria Mercado\" para começar."
		return nil
	}

	var b strings.Builder
	b.WriteString("Suas categorias:")
	for _, c := range cats {
		fmt.Fprintf(&b, "\n• %s", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, " — %s", c.Description)
		}
	}
	st.Reply = b.String()
	return nil
}

func (p *Pipeline) handleAddCategory(ctx context.Context, st *TurnState) error {
	cat, err := p.categories.Add(ctx, st.User.ID, st.Reading.Category, st.Reading.Description)
	if err != nil {
		return err
	}
	st.Reply = fmt.Sprintf("✅ Categoria %s criada.", cat.Name)
	return nil
}

func (p *Pipeline) handleRemoveCategory(ctx context.Context, st *TurnState) error {
	name := strings.TrimSpace(st.Reading.Category)
	if name == "" {
		st.Reply = "Qual categoria você quer remover?"
		return nil
	}
	if err := p.categories.Remove(ctx, st.User.ID, name); err != nil {
		return err
	}
	st.Reply = fmt.Sprintf("✅ Categoria %s removida.", name)
	return nil
}

func (p *Pipeline) handleAddLimit(ctx context.Context, st *TurnState) error {
	if st.Reading.Amount == nil {
		st.Reply = "Qual o valor do limite? Por exemplo: \"limite de 500 por mês em Alimentação\"."
		return nil
	}
	if strings.TrimSpace(st.Reading.Category) == "" {
		st.Reply = "Para qual categoria é esse limite?"
		return nil
	}

	cat, err := p.categories.Resolve(ctx, st.User.ID, st.Reading.Category)
	if err != nil {
		return err
	}

	kind, ok := limitrule.ParsePeriodKind(st.Reading.PeriodKind)
	if !ok {
		kind = limitrule.PeriodMonthly
	}

	periodStart, periodEnd := initialWindow(kind, st.Now, st.Reading.FromDate, st.Reading.ToDate)
	rule, err := p.ledger.CreateRule(ctx, st.User.ID, cat.ID, cat.Name, kind, *st.Reading.Amount, periodStart, periodEnd)
	if err != nil {
		return err
	}

	st.Reply = fmt.Sprintf("✅ Limite %s de %s criado para %s.",
		periodKindLabel(rule.PeriodKind), formatBRL(rule.LimitAmount), cat.Name)
	return nil
}

// initialWindow anchors a new rule's first window at the natural boundary
// containing now: midnight, Monday, or the first of the month. Custom rules
// take the dates the user gave.
func initialWindow(kind limitrule.PeriodKind, now time.Time, from, to *time.Time) (time.Time, *time.Time) {
	switch kind {
	case limitrule.PeriodDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	case limitrule.PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
		return monday, nil
	case limitrule.PeriodCustom:
		if from != nil && to != nil {
			return *from, to
		}
		fallthrough
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
}

func (p *Pipeline) handleRemoveLimit(ctx context.Context, st *TurnState) error {
	name := strings.TrimSpace(st.Reading.Category)
	if name == "" {
		st.Reply = "De qual categoria você quer remover o limite?"
		return nil
	}

	cat, err := p.categories.Resolve(ctx, st.User.ID, name)
	if err != nil {
		return err
	}

	if kind, ok := limitrule.ParsePeriodKind(st.Reading.PeriodKind); ok {
		rules, err := p.ledger.ActiveRulesForCategory(ctx, st.User.ID, cat.ID)
		if err != nil {
			return err
		}
		for _, r := range rules {
			if r.PeriodKind != kind {
				continue
			}
			if err := p.ledger.Deactivate(ctx, r); err != nil {
				return err
			}
			st.Reply = fmt.Sprintf("✅ Limite %s de %s removido.", periodKindLabel(kind), cat.Name)
			return nil
		}
		st.Reply = fmt.Sprintf("Não encontrei um limite %s para %s.", periodKindLabel(kind), cat.Name)
		return nil
	}

	removed, err := p.ledger.DeactivateForCategory(ctx, st.User.ID, cat.ID)
	if err != nil {
		return err
	}
	if removed == 0 {
		st.Reply = fmt.Sprintf("%s não tem limites ativos.", cat.Name)
		return nil
	}
	st.Reply = fmt.Sprintf("✅ %d limite(s) de %s removido(s).", removed, cat.Name)
	return nil
}

func (p *Pipeline) handleRemoveExpense(ctx context.Context, st *TurnState) error {
	var (
		removed *expense.Expense
		err     error
	)
	if st.Reading.RemoveLast || strings.TrimSpace(st.Reading.Description) == "" {
		removed, err = p.expenses.DeleteLast(ctx, st.User.ID)
	} else {
		removed, err = p.expenses.DeleteByPublicID(ctx, st.User.ID, strings.TrimSpace(st.Reading.Description))
	}
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			st.Reply = "Não encontrei esse gasto para remover."
			return nil
		}
		return err
	}

	p.reverseFromRules(ctx, st, removed)

	desc := removed.Description
	if desc == "" {
		desc = "sem descrição"
	}
	st.Reply = fmt.Sprintf("✅ Gasto removido: %s em %s (%s).", formatBRL(removed.Amount), removed.CategoryName, desc)
	return nil
}

// reverseFromRules subtracts a deleted expense from the running totals of
// the rules whose current window still contains it. Failures log and move
// on; the deletion itself already happened.
func (p *Pipeline) reverseFromRules(ctx context.Context, st *TurnState, removed *expense.Expense) {
	rules, err := p.ledger.ActiveRulesForCategory(ctx, st.User.ID, removed.CategoryID)
	if err != nil {
		p.logger.Warn().Err(err).Msg("loading rules to reverse deleted expense failed")
		return
	}
	for _, r := range rules {
		if _, err := p.ledger.RolloverIfDue(ctx, r, st.Now); err != nil {
			continue
		}
		start, end := r.Window()
		if removed.CreatedAt.Before(start) || !removed.CreatedAt.Before(end) {
			continue
		}
		if err := p.ledger.ApplyDelta(ctx, r, removed.Amount.Neg(), "del_"+removed.PublicID, st.Now); err != nil {
			p.logger.Warn().Err(err).Str("rule_id", r.PublicID).Msg("reversing deleted expense from rule failed")
		}
	}
}
