package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/domain/pipeline"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
)

const (
	longPollTimeout = 25 * time.Second
	maxInFlight     = 16
)

// Poller drives the getUpdates loop and feeds messages into the pipeline.
// Replies go back to the originating chat. Ordering per user is enforced
// by the pipeline itself, so updates from different chats run concurrently.
type Poller struct {
	client   *Client
	pipeline *pipeline.Pipeline
	interval time.Duration
	offset   int64
}

func NewPoller(cfg *config.Config, client *Client, pipe *pipeline.Pipeline) *Poller {
	return &Poller{
		client:   client,
		pipeline: pipe,
		interval: cfg.TelegramPollInterval,
	}
}

// Run polls until ctx is cancelled. Poll errors are logged and retried
// after the configured interval rather than stopping the loop.
func (p *Poller) Run(ctx context.Context) error {
	log := logger.WithComponent("telegram")
	log.Info().Dur("interval", p.interval).Msg("starting telegram polling loop")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("telegram polling loop stopped")
			return ctx.Err()
		default:
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, longPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Msg("poll failed, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.interval):
			}
			continue
		}

		p.dispatch(ctx, updates)
	}
}

func (p *Poller) dispatch(ctx context.Context, updates []Update) {
	log := logger.WithComponent("telegram")

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxInFlight)

	for _, update := range updates {
		if update.UpdateID >= p.offset {
			p.offset = update.UpdateID + 1
		}
		if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
			continue
		}

		msg := *update.Message
		group.Go(func() error {
			identity := fmt.Sprintf("tg:%d", msg.Chat.ID)
			reply, err := p.pipeline.HandleMessage(groupCtx, identity, msg.Text)
			if err != nil {
				log.Error().Err(err).Str("identity", identity).Msg("message handling failed")
			}
			if reply == "" {
				return nil
			}
			if err := p.client.SendMessage(groupCtx, msg.Chat.ID, reply); err != nil {
				log.Error().Err(err).Str("identity", identity).Msg("reply delivery failed")
			}
			return nil
		})
	}

	// Errors are handled per message above; wait only for completion so the
	// next poll cannot reorder turns within a chat.
	_ = group.Wait()
}
