// Package convo provides the conversation turn log and the per-user
// conversation context carried between turns.
package convo

import (
	"context"
	"time"
)

// Turn is one completed exchange: the inbound message and the reply it
// produced. Append-only.
type Turn struct {
	ID        uint
	UserID    uint
	Inbound   string
	Outbound  string
	Intent    string
	CreatedAt time.Time
}

// Repository defines storage operations for the turn log.
type Repository interface {
	Append(ctx context.Context, turn *Turn) error
	ListRecent(ctx context.Context, userID uint, limit int) ([]*Turn, error)
}

// PendingClarification is a partially understood request waiting on the user
// for missing pieces. Attempts counts questions already asked.
type PendingClarification struct {
	Intent   string            `json:"intent"`
	Question string            `json:"question"`
	Missing  []string          `json:"missing"`
	Fields   map[string]string `json:"fields"`
	Attempts int               `json:"attempts"`
}

// Context is the per-user state carried across turns. It lives in the
// context store, not the relational database, and expires on its own.
type Context struct {
	Pending   *PendingClarification `json:"pending,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Store keeps one Context per user identity. Load returns nil without error
// when no context exists.
type Store interface {
	Load(ctx context.Context, identity string) (*Context, error)
	Save(ctx context.Context, identity string, c *Context) error
	Clear(ctx context.Context, identity string) error
}

// Sweeper is implemented by stores that need periodic expiry of stale
// contexts; stores with native TTLs do not.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Service appends to and reads the turn log.
type Service struct {
	repo Repository
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends a completed turn.
func (s *Service) Record(ctx context.Context, userID uint, inbound, outbound, intent string) error {
	return s.repo.Append(ctx, &Turn{
		UserID:    userID,
		Inbound:   inbound,
		Outbound:  outbound,
		Intent:    intent,
		CreatedAt: time.Now().UTC(),
	})
}

// Recent returns the latest turns, newest first.
func (s *Service) Recent(ctx context.Context, userID uint, limit int) ([]*Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListRecent(ctx, userID, limit)
}
