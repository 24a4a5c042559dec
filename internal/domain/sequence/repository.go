package sequence

import (
	"context"

	"github.com/numera/numera/internal/types"
)

// Repository owns the counters table. No other component writes it.
type Repository interface {
	// Next allocates the next number for the scope. It MUST be called inside
	// a transaction carried by ctx: the counter row is read under an
	// exclusive row lock and the increment only becomes visible when that
	// transaction commits, so a rollback of the surrounding document
	// creation also rolls the counter back. A second concurrent caller on
	// the same scope blocks on the row lock until the first commits or
	// rolls back, bounded by the configured lock timeout (surfaced as
	// ErrSequenceContention).
	Next(ctx context.Context, scope types.ScopeKey) (int64, error)

	// Get returns the counter row for a scope, or ErrNotFound when nothing
	// has been allocated against it yet. Read-only, no lock taken.
	Get(ctx context.Context, scope types.ScopeKey) (*Counter, error)
}
