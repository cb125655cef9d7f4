// Package pipeline sequences one inbound message through the routing stages
// and guarantees exactly one reply per message.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jarvishq/jarvis-server/internal/domain/alert"
	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/domain/nlu"
	"github.com/jarvishq/jarvis-server/internal/domain/user"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/metrics"
)

// Stage names a pipeline stage, used for diagnostics and metrics.
type Stage string

const (
	StageGateway Stage = "gateway"
	StageRoute   Stage = "route"
	StageFinance Stage = "finance"
	StageSetup   Stage = "setup"
	StageClarify Stage = "clarify"
	StageOutput  Stage = "output"
)

// genericApology is the reply for any internal failure past the gateway.
const genericApology = "Desculpe, tive um problema para processar sua mensagem. Pode tentar de novo?"

// TurnState is the explicit record a turn accumulates while moving through
// the stages. Nothing about a turn lives outside it.
type TurnState struct {
	Identity string
	Inbound  string
	Now      time.Time

	User     *user.User
	Context  *convo.Context
	Reading  *nlu.Classification
	Intent   nlu.Intent
	Stage    Stage
	Reply    string
	Alerts   []alert.Alert
	Failed   bool
	ClearCtx bool
}

// Options carries the tunables the pipeline needs from configuration.
type Options struct {
	MaxMessageLength   int
	MaxClarifyAttempts int
	DefaultCategories  []category.Seed
}

// Pipeline wires the stages over the domain services. One instance serves
// all users; runs for the same user are serialized.
type Pipeline struct {
	users      *user.Service
	categories *category.Service
	expenses   *expense.Service
	ledger     *limitrule.Service
	evaluator  *alert.Evaluator
	turns      *convo.Service
	ctxStore   convo.Store
	classifier nlu.Classifier
	opts       Options
	locks      *keyedLocks
	logger     zerolog.Logger
}

// NewPipeline constructs a Pipeline with required dependencies.
func NewPipeline(
	users *user.Service,
	categories *category.Service,
	expenses *expense.Service,
	ledger *limitrule.Service,
	evaluator *alert.Evaluator,
	turns *convo.Service,
	ctxStore convo.Store,
	classifier nlu.Classifier,
	opts Options,
	logger zerolog.Logger,
) *Pipeline {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 2000
	}
	if opts.MaxClarifyAttempts <= 0 {
		opts.MaxClarifyAttempts = 3
	}
	return &Pipeline{
		users:      users,
		categories: categories,
		expenses:   expenses,
		ledger:     ledger,
		evaluator:  evaluator,
		turns:      turns,
		ctxStore:   ctxStore,
		classifier: classifier,
		opts:       opts,
		locks:      newKeyedLocks(),
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// HandleMessage runs one full turn for the identity and returns the reply.
// The returned error is reserved for failures before the gateway admits the
// message; past that point every failure still yields a worded reply.
func (p *Pipeline) HandleMessage(ctx context.Context, identity, text string) (string, error) {
	start := time.Now()

	unlock := p.locks.lock(identity)
	defer unlock()

	st := &TurnState{
		Identity: identity,
		Inbound:  text,
		Now:      time.Now().UTC(),
		Stage:    StageGateway,
	}

	if p.runGateway(ctx, st) {
		if err := p.runRoute(ctx, st); err != nil {
			p.fail(st, err)
		}
	}

	p.runOutput(ctx, st)

	metrics.RecordTurn(string(st.Intent), string(st.Stage), time.Since(start).Seconds())
	return st.Reply, nil
}

// fail marks the turn failed, keeping the originating stage for the log and
// leaving any stored context untouched.
func (p *Pipeline) fail(st *TurnState, err error) {
	st.Failed = true
	st.Reply = genericApology
	p.logger.Error().
		Err(err).
		Str("stage", string(st.Stage)).
		Str("identity", st.Identity).
		Msg("turn failed")
}
