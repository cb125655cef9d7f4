package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/domain/user"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// continueWords advance an onboarding step without providing data.
var continueWords = map[string]bool{
	"pronto": true, "continuar": true, "ok": true, "sim": true,
	"não": true, "nao": true, "n": true, "pular": true, "seguir": true,
}

var amountPattern = regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)`)

// runSetup owns every turn for a user mid-onboarding. One step per turn;
// only the final step clears the setup stage.
func (p *Pipeline) runSetup(ctx context.Context, st *TurnState, created bool) error {
	st.Stage = StageSetup
	st.ClearCtx = true
	st.Intent = "setup"

	stage := user.SetupStageStart
	if !created && st.User.SetupStage != nil {
		stage = *st.User.SetupStage
	}

	switch stage {
	case user.SetupStageStart:
		return p.setupStart(ctx, st)
	case user.SetupStageGetName:
		return p.setupGetName(ctx, st)
	case user.SetupStageCategories:
		return p.setupCategories(ctx, st)
	case user.SetupStageLimits:
		return p.setupLimits(ctx, st)
	default:
		// A stray stage value never blocks the user.
		if err := p.users.AdvanceSetup(ctx, st.User, user.SetupStageComplete); err != nil {
			return err
		}
		st.Reply = "Tudo certo! Pode registrar seus gastos quando quiser."
		return nil
	}
}

func (p *Pipeline) setupStart(ctx context.Context, st *TurnState) error {
	if err := p.users.AdvanceSetup(ctx, st.User, user.SetupStageGetName); err != nil {
		return err
	}
	st.Reply = "Olá! Eu sou seu assistente de finanças pessoais. 👋\n" +
		"Vou te ajudar a registrar gastos, organizar categorias e controlar limites.\n\n" +
		"Para começar, como você gostaria de ser chamado(a)?"
	return nil
}

func (p *Pipeline) setupGetName(ctx context.Context, st *TurnState) error {
	if err := p.users.SetDisplayName(ctx, st.User, st.Inbound); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			st.Reply = "Esse não parece um nome válido. Me diga como você gostaria de ser chamado(a)."
			return nil
		}
		return err
	}

	seeds := make([]category.Seed, 0, len(p.opts.DefaultCategories))
	seeds = append(seeds, p.opts.DefaultCategories...)
	if err := p.categories.SeedDefaults(ctx, st.User.ID, seeds); err != nil {
		return err
	}
	if err := p.users.AdvanceSetup(ctx, st.User, user.SetupStageCategories); err != nil {
		return err
	}

	cats, err := p.categories.List(ctx, st.User.ID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Prazer, %s! Criei estas categorias para você:", *st.User.DisplayName)
	for _, c := range cats {
		fmt.Fprintf(&b, "\n• %s", c.Name)
	}
	b.WriteString("\n\nQuer criar mais alguma? Envie o nome da categoria, ou diga \"continuar\".")
	st.Reply = b.String()
	return nil
}

func (p *Pipeline) setupCategories(ctx context.Context, st *TurnState) error {
	if continueWords[strings.ToLower(strings.TrimSpace(st.Inbound))] {
		if err := p.users.AdvanceSetup(ctx, st.User, user.SetupStageLimits); err != nil {
			return err
		}
		st.Reply = "Agora os limites de gastos. Envie um por mensagem, no formato:\n" +
			"\"Alimentação 800 mensal\" ou \"Lazer 150 semanal\"\n\n" +
			"Quando terminar (ou se não quiser limites agora), diga \"pronto\"."
		return nil
	}

	cat, err := p.categories.Add(ctx, st.User.ID, st.Inbound, "")
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			st.Reply = "Essa categoria já existe. Envie outro nome, ou diga \"continuar\"."
			return nil
		}
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			st.Reply = "Não entendi o nome. Envie o nome da categoria, ou diga \"continuar\"."
			return nil
		}
		return err
	}
	st.Reply = fmt.Sprintf("✅ Categoria %s criada. Mais alguma? Ou diga \"continuar\".", cat.Name)
	return nil
}

func (p *Pipeline) setupLimits(ctx context.Context, st *TurnState) error {
	if continueWords[strings.ToLower(strings.TrimSpace(st.Inbound))] {
		if err := p.users.AdvanceSetup(ctx, st.User, user.SetupStageComplete); err != nil {
			return err
		}
		name := ""
		if st.User.DisplayName != nil {
			name = ", " + *st.User.DisplayName
		}
		st.Reply = fmt.Sprintf("Tudo pronto%s! 🎉\n"+
			"Agora é só me contar seus gastos, tipo \"gastei 35 no almoço\".\n"+
			"Digite \"ajuda\" sempre que quiser ver o que eu sei fazer.", name)
		return nil
	}

	catName, amount, kind, ok := parseLimitLine(st.Inbound)
	if !ok {
		st.Reply = "Não entendi esse limite. Use o formato \"Alimentação 800 mensal\", ou diga \"pronto\" para encerrar."
		return nil
	}

	cat, err := p.categories.Resolve(ctx, st.User.ID, catName)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			st.Reply = fmt.Sprintf("Não encontrei a categoria %q. Use uma das suas categorias, ou diga \"pronto\".", catName)
			return nil
		}
		return err
	}

	periodStart, periodEnd := initialWindow(kind, st.Now, nil, nil)
	rule, err := p.ledger.CreateRule(ctx, st.User.ID, cat.ID, cat.Name, kind, amount, periodStart, periodEnd)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			st.Reply = fmt.Sprintf("%s já tem um limite %s. Envie outro, ou diga \"pronto\".", cat.Name, periodKindLabel(kind))
			return nil
		}
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			st.Reply = "O valor do limite precisa ser maior que zero. Tente de novo, ou diga \"pronto\"."
			return nil
		}
		return err
	}

	st.Reply = fmt.Sprintf("✅ Limite %s de %s para %s. Mais algum? Ou diga \"pronto\".",
		periodKindLabel(rule.PeriodKind), formatBRL(rule.LimitAmount), cat.Name)
	return nil
}

// parseLimitLine reads lines like "Alimentação 800 mensal". The period word
// is optional and defaults to monthly.
func parseLimitLine(line string) (string, decimal.Decimal, limitrule.PeriodKind, bool) {
	match := amountPattern.FindStringIndex(line)
	if match == nil {
		return "", decimal.Zero, "", false
	}

	raw := strings.ReplaceAll(line[match[0]:match[1]], ",", ".")
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return "", decimal.Zero, "", false
	}

	catName := strings.TrimSpace(line[:match[0]])
	rest := strings.TrimSpace(line[match[1]:])
	if catName == "" {
		return "", decimal.Zero, "", false
	}

	kind := limitrule.PeriodMonthly
	if rest != "" {
		if parsed, ok := limitrule.ParsePeriodKind(strings.Fields(rest)[0]); ok {
			kind = parsed
		}
	}
	return catName, amount, kind, true
}
