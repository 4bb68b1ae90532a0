// Package session implements the Conversation State component (spec.md
// §3, §5, §9): a per-session LastTurn record with scoped-acquisition
// lifecycle (allocated on first utterance, released on explicit "new
// conversation" or a 30-minute expiry timer, guaranteed release on all
// exit paths) and a per-session lock so only one writer commits a turn
// at a time.
package session

import (
	"context"

	"github.com/txplain/bankrouter/internal/models"
)

// Store is the interface the router uses for conversation memory. Both
// backends (in-memory, Redis) satisfy it identically from the router's
// point of view.
type Store interface {
	// Get returns the current LastTurn for a session, or the zero value
	// if the session has never committed a turn (or has expired/reset).
	Get(ctx context.Context, sessionID string) (models.LastTurn, error)

	// WithLock acquires the per-session lock, invokes fn with the
	// current LastTurn, and — unless fn returns an error — persists
	// whatever fn returns and refreshes the session's expiry. The lock
	// is always released before WithLock returns, including when fn
	// panics the caller out via a recover at a higher level (the
	// implementation defers the unlock).
	WithLock(ctx context.Context, sessionID string, fn func(current models.LastTurn) (models.LastTurn, error)) error

	// Reset releases a session's memory immediately — the "explicit new
	// conversation" exit path from spec.md §9.
	Reset(ctx context.Context, sessionID string) error

	// Close stops any background expiry sweeping and releases
	// resources.
	Close() error
}
