package pipeline

import (
	"context"
	"strings"
)

// runOutput is the single exit point of the pipeline. It guarantees a
// non-empty reply, appends any alert block, records the turn and settles the
// stored context. A failed turn leaves the context untouched.
func (p *Pipeline) runOutput(ctx context.Context, st *TurnState) {
	finalStage := st.Stage
	st.Stage = StageOutput

	if strings.TrimSpace(st.Reply) == "" {
		p.logger.Error().
			Str("stage", string(finalStage)).
			Str("identity", st.Identity).
			Msg("stage produced empty reply")
		st.Reply = genericApology
		st.Failed = true
	}

	if len(st.Alerts) > 0 {
		st.Reply += formatAlerts(st.Alerts)
	}

	if st.User != nil {
		if err := p.turns.Record(ctx, st.User.ID, st.Inbound, st.Reply, string(st.Intent)); err != nil {
			p.logger.Warn().Err(err).Str("identity", st.Identity).Msg("recording turn failed")
		}
	}

	if st.Failed {
		return
	}

	switch {
	case st.Context != nil && st.Context.Pending != nil:
		if err := p.ctxStore.Save(ctx, st.Identity, st.Context); err != nil {
			p.logger.Warn().Err(err).Str("identity", st.Identity).Msg("saving context failed")
		}
	case st.ClearCtx:
		if err := p.ctxStore.Clear(ctx, st.Identity); err != nil {
			p.logger.Warn().Err(err).Str("identity", st.Identity).Msg("clearing context failed")
		}
	}

	st.Stage = finalStage
}
