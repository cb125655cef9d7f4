// Package nlu defines the natural language understanding contract the
// routing pipeline depends on. Implementations live in infrastructure.
package nlu

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/convo"
)

// Intent is the closed set of things a message can ask for.
type Intent string

const (
	IntentRecordExpense  Intent = "record_expense"
	IntentQueryTotal     Intent = "query_total"
	IntentQueryCategory  Intent = "query_category"
	IntentQueryLast      Intent = "query_last"
	IntentQueryLimits    Intent = "query_limits"
	IntentListCategories Intent = "list_categories"
	IntentAddCategory    Intent = "add_category"
	IntentRemoveCategory Intent = "remove_category"
	IntentAddLimit       Intent = "add_limit"
	IntentRemoveLimit    Intent = "remove_limit"
	IntentRemoveExpense  Intent = "remove_expense"
	IntentSetup          Intent = "setup"
	IntentHelp           Intent = "help"
	IntentClarify        Intent = "clarify"
	IntentOutOfScope     Intent = "out_of_scope"
)

// KnownIntent reports whether raw names an intent the pipeline handles.
func KnownIntent(raw string) (Intent, bool) {
	switch Intent(raw) {
	case IntentRecordExpense, IntentQueryTotal, IntentQueryCategory, IntentQueryLast,
		IntentQueryLimits, IntentListCategories, IntentAddCategory, IntentRemoveCategory,
		IntentAddLimit, IntentRemoveLimit, IntentRemoveExpense, IntentSetup,
		IntentHelp, IntentClarify, IntentOutOfScope:
		return Intent(raw), true
	}
	return "", false
}

// Classification is the structured reading of one message. Fields are set
// per intent; absent ones stay zero.
type Classification struct {
	Intent      Intent
	Amount      *decimal.Decimal
	Description string
	Category    string
	Period      string
	FromDate    *time.Time
	ToDate      *time.Time
	PeriodKind  string
	RemoveLast  bool
	Question    string
	Missing     []string
}

// Classifier turns free-form user text into a Classification. Implementations
// must stay side-effect free from the pipeline's point of view.
type Classifier interface {
	Classify(ctx context.Context, text string, history []*convo.Turn) (*Classification, error)
	ResolveClarification(ctx context.Context, text string, pending *convo.PendingClarification) (*Classification, error)
}
