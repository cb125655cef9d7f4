package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/domain/nlu"
	"github.com/jarvishq/jarvis-server/internal/domain/user"
)

// runRoute resolves the user, decides which branch owns the turn and runs
// it. Users mid-onboarding always land in setup, before any classification.
func (p *Pipeline) runRoute(ctx context.Context, st *TurnState) error {
	st.Stage = StageRoute

	u, created, err := p.users.EnsureUser(ctx, st.Identity)
	if err != nil {
		return err
	}
	st.User = u

	if err := p.users.TouchLastMessage(ctx, u, st.Now); err != nil {
		p.logger.Warn().Err(err).Str("identity", st.Identity).Msg("touch last message failed")
	}

	if created || !u.SetupComplete() {
		return p.runSetup(ctx, st, created)
	}

	stored, err := p.ctxStore.Load(ctx, st.Identity)
	if err != nil {
		p.logger.Warn().Err(err).Str("identity", st.Identity).Msg("context load failed, starting turn without context")
		stored = nil
	}
	st.Context = stored

	if stored != nil && stored.Pending != nil {
		return p.resumeClarification(ctx, st)
	}

	history, err := p.turns.Recent(ctx, u.ID, 5)
	if err != nil {
		p.logger.Warn().Err(err).Msg("turn history load failed, classifying without history")
		history = nil
	}

	reading, err := p.classifier.Classify(ctx, st.Inbound, history)
	if err != nil {
		return err
	}
	st.Reading = reading
	st.Intent = reading.Intent

	return p.dispatch(ctx, st)
}

func (p *Pipeline) dispatch(ctx context.Context, st *TurnState) error {
	switch st.Reading.Intent {
	case nlu.IntentSetup:
		if err := p.users.AdvanceSetup(ctx, st.User, user.SetupStageStart); err != nil {
			return err
		}
		return p.runSetup(ctx, st, false)
	case nlu.IntentHelp:
		st.Reply = helpReply(st.User)
		return nil
	case nlu.IntentOutOfScope:
		st.Reply = "Isso foge do que eu sei fazer. Eu ajudo com seus gastos, categorias e limites. Digite \"ajuda\" para ver exemplos."
		return nil
	case nlu.IntentClarify:
		return p.beginClarification(ctx, st)
	default:
		return p.runFinance(ctx, st)
	}
}

// beginClarification stores the partial reading and asks the user for the
// missing pieces.
func (p *Pipeline) beginClarification(ctx context.Context, st *TurnState) error {
	st.Stage = StageClarify

	question := st.Reading.Question
	if question == "" {
		question = "Não entendi completamente. Pode me dar mais detalhes?"
	}

	st.Context = &convo.Context{
		Pending: &convo.PendingClarification{
			Intent:   string(st.Reading.Intent),
			Question: question,
			Missing:  st.Reading.Missing,
			Fields:   fieldsFromReading(st.Reading),
			Attempts: 1,
		},
		UpdatedAt: st.Now,
	}
	st.Reply = question
	return nil
}

// resumeClarification feeds the new message back through the classifier
// together with what we already knew. Attempts are capped; past the cap the
// turn falls through to finance with whatever was collected.
func (p *Pipeline) resumeClarification(ctx context.Context, st *TurnState) error {
	st.Stage = StageClarify
	pending := st.Context.Pending

	reading, err := p.classifier.ResolveClarification(ctx, st.Inbound, pending)
	if err != nil {
		return err
	}
	mergeFromPending(reading, pending)
	st.Reading = reading
	st.Intent = reading.Intent

	if reading.Intent != nlu.IntentClarify {
		st.Context = nil
		st.ClearCtx = true
		return p.dispatch(ctx, st)
	}

	if pending.Attempts >= p.opts.MaxClarifyAttempts {
		// Out of questions; run with what we have.
		st.Context = nil
		st.ClearCtx = true
		if intent, ok := nlu.KnownIntent(pending.Intent); ok && intent != nlu.IntentClarify {
			reading.Intent = intent
		} else {
			reading.Intent = nlu.IntentRecordExpense
		}
		st.Intent = reading.Intent
		return p.dispatch(ctx, st)
	}

	question := reading.Question
	if question == "" {
		question = pending.Question
	}
	st.Context = &convo.Context{
		Pending: &convo.PendingClarification{
			Intent:   pending.Intent,
			Question: question,
			Missing:  reading.Missing,
			Fields:   mergeFields(pending.Fields, fieldsFromReading(reading)),
			Attempts: pending.Attempts + 1,
		},
		UpdatedAt: st.Now,
	}
	st.Reply = question
	return nil
}

// fieldsFromReading flattens the parts of a reading worth carrying between
// clarification turns.
func fieldsFromReading(c *nlu.Classification) map[string]string {
	fields := make(map[string]string)
	if c.Amount != nil {
		fields["amount"] = c.Amount.String()
	}
	if c.Category != "" {
		fields["category"] = c.Category
	}
	if c.Description != "" {
		fields["description"] = c.Description
	}
	if c.Period != "" {
		fields["period"] = c.Period
	}
	if c.PeriodKind != "" {
		fields["period_kind"] = c.PeriodKind
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func mergeFields(old, new map[string]string) map[string]string {
	merged := make(map[string]string, len(old)+len(new))
	for k, v := range old {
		merged[k] = v
	}
	for k, v := range new {
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// mergeFromPending fills reading fields the new message did not repeat from
// the previously collected ones.
func mergeFromPending(c *nlu.Classification, pending *convo.PendingClarification) {
	if pending == nil || pending.Fields == nil {
		return
	}
	if c.Amount == nil {
		if raw, ok := pending.Fields["amount"]; ok {
			if amount, err := decimal.NewFromString(raw); err == nil {
				c.Amount = &amount
			}
		}
	}
	if c.Category == "" {
		c.Category = pending.Fields["category"]
	}
	if c.Description == "" {
		c.Description = pending.Fields["description"]
	}
	if c.Period == "" {
		c.Period = pending.Fields["period"]
	}
	if c.PeriodKind == "" {
		c.PeriodKind = pending.Fields["period_kind"]
	}
}
