package pipeline

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/alert"
	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/domain/user"
)

// formatBRL renders a decimal as Brazilian currency: R$ 1.234,56.
func formatBRL(d decimal.Decimal) string {
	negative := d.IsNegative()
	fixed := d.Abs().StringFixed(2)

	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, b.String(), fracPart)
}

func periodPhrase(p expense.Period) string {
	switch p {
	case expense.PeriodDay:
		return "hoje"
	case expense.PeriodWeek:
		return "nesta semana"
	case expense.PeriodMonth:
		return "neste mês"
	default:
		return "no total"
	}
}

func periodKindLabel(k limitrule.PeriodKind) string {
	switch k {
	case limitrule.PeriodDaily:
		return "diário"
	case limitrule.PeriodWeekly:
		return "semanal"
	case limitrule.PeriodMonthly:
		return "mensal"
	default:
		return "personalizado"
	}
}

func severityLabel(s alert.Severity) string {
	if s == alert.SeverityExceeded {
		return "exceeded"
	}
	return "warning"
}

// formatAlerts renders the alert block appended under a reply.
func formatAlerts(alerts []alert.Alert) string {
	var b strings.Builder
	for _, a := range alerts {
		percent := a.Ratio.Mul(decimal.NewFromInt(100)).Round(0)
		b.WriteString("\n\n")
		if a.Severity == alert.SeverityExceeded {
			fmt.Fprintf(&b, "🔴 LIMITE EXCEDIDO: %s (%s)\n", a.CategoryName, periodKindLabel(a.PeriodKind))
			fmt.Fprintf(&b, "Gasto: %s de %s (%s%%)", formatBRL(a.CurrentTotal), formatBRL(a.LimitAmount), percent)
		} else {
			fmt.Fprintf(&b, "🟡 ATENÇÃO: %s (%s)\n", a.CategoryName, periodKindLabel(a.PeriodKind))
			fmt.Fprintf(&b, "Você já usou %s%% do limite: %s de %s\n", percent, formatBRL(a.CurrentTotal), formatBRL(a.LimitAmount))
			fmt.Fprintf(&b, "Restam %s", formatBRL(a.Remaining))
		}
	}
	return b.String()
}

// formatLimitList renders the active rules with their usage.
func formatLimitList(rules []*limitrule.Rule) string {
	var b strings.Builder
	b.WriteString("Seus limites:")
	for _, r := range rules {
		percent := r.Usage().Mul(decimal.NewFromInt(100)).Round(0)
		icon := "🟢"
		switch {
		case r.CurrentTotal.GreaterThanOrEqual(r.LimitAmount):
			icon = "🔴"
		case r.Usage().GreaterThanOrEqual(decimal.NewFromFloat(0.9)):
			icon = "🟡"
		}
		fmt.Fprintf(&b, "\n%s %s (%s): %s de %s (%s%%)",
			icon, r.CategoryName, periodKindLabel(r.PeriodKind),
			formatBRL(r.CurrentTotal), formatBRL(r.LimitAmount), percent)
	}
	return b.String()
}

func helpReply(u *user.User) string {
	name := ""
	if u != nil && u.DisplayName != nil {
		name = ", " + *u.DisplayName
	}
	return fmt.Sprintf("Aqui está o que eu sei fazer%s:\n\n"+
		"💸 Registrar gastos: \"gastei 50 no mercado\"\n"+
		"📊 Consultar totais: \"quanto gastei este mês?\"\n"+
		"📁 Categorias: \"minhas categorias\", \"criar categoria Pets\", \"remover categoria Pets\"\n"+
		"🚦 Limites: \"meus limites\", \"limite de 500 por mês em Alimentação\", \"remover limite de Lazer\"\n"+
		"🗑️ Corrigir: \"remover último gasto\"\n"+
		"🔁 Recomeçar a configuração: \"refazer configuração\"", name)
}
