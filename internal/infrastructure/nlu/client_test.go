package nlu

import (
	"context"
	"testing"
	"time"

	"github.com/jarvishq/jarvis-server/internal/domain/nlu"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

func TestParsePayload(t *testing.T) {
	ctx := context.Background()

	c, err := parsePayload(ctx, `{
		"intent": "record_expense",
		"amount": 50.5,
		"description": " mercado ",
		"category": "Alimentação",
		"period": "",
		"from_date": "2026-03-01",
		"to_date": "2026-03-31"
	}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Intent != nlu.IntentRecordExpense {
		t.Errorf("intent = %q, want record_expense", c.Intent)
	}
	if c.Amount == nil || c.Amount.String() != "50.5" {
		t.Errorf("amount = %v, want 50.5", c.Amount)
	}
	if c.Description != "mercado" {
		t.Errorf("description = %q, want trimmed", c.Description)
	}
	if c.FromDate == nil || !c.FromDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from date = %v, want 2026-03-01", c.FromDate)
	}
	if c.ToDate == nil || !c.ToDate.Equal(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to date = %v, want 2026-03-31", c.ToDate)
	}
}

func TestParsePayload_StripsMarkdownFences(t *testing.T) {
	c, err := parsePayload(context.Background(), "```json\n{\"intent\": \"query_total\", \"period\": \"month\"}\n```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Intent != nlu.IntentQueryTotal || c.Period != "month" {
		t.Errorf("classification = %+v, want query_total month", c)
	}
}

func TestParsePayload_UnknownIntentBecomesOutOfScope(t *testing.T) {
	c, err := parsePayload(context.Background(), `{"intent": "book_flight"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Intent != nlu.IntentOutOfScope {
		t.Errorf("intent = %q, want out_of_scope", c.Intent)
	}
}

func TestParsePayload_InvalidJSON(t *testing.T) {
	_, err := parsePayload(context.Background(), "claro, vou registrar isso para você!")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestParsePayload_InvalidDatesAreDropped(t *testing.T) {
	c, err := parsePayload(context.Background(), `{"intent": "query_total", "from_date": "01/03/2026"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.FromDate != nil {
		t.Errorf("from date = %v, want nil for unparseable input", c.FromDate)
	}
}
