package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/numera/numera/internal/domain/sequence"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/types"
)

type sequenceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return &sequenceRepository{db: db, logger: logger}
}

const (
	selectCounterForUpdate = `
	SELECT last_issued FROM counters WHERE scope_key = $1 FOR UPDATE`

	// DO NOTHING instead of a plain insert: two transactions can race to
	// create the row for a fresh scope, and a raised unique violation would
	// abort the whole surrounding transaction. The loser simply re-runs the
	// locking select and blocks on the winner's row.
	insertCounter = `
	INSERT INTO counters (scope_key, last_issued, updated_at)
	VALUES ($1, 0, $2)
	ON CONFLICT (scope_key) DO NOTHING`

	updateCounter = `
	UPDATE counters SET last_issued = $2, updated_at = $3 WHERE scope_key = $1`

	selectCounter = `
	SELECT scope_key, last_issued, updated_at FROM counters WHERE scope_key = $1`
)

// Next implements sequence.Repository. The read-lock-increment runs on the
// transaction carried by ctx, so the increment commits or rolls back with
// the rest of the document creation.
func (r *sequenceRepository) Next(ctx context.Context, scope types.ScopeKey) (int64, error) {
	if _, ok := postgres.GetTx(ctx); !ok {
		return 0, ierr.NewError("sequence allocation outside a transaction").
			WithHint("number allocation must run inside the document creation transaction").
			WithReportableDetails(map[string]any{"scope": scope.Key()}).
			Mark(ierr.ErrSystem)
	}

	q := r.db.GetQuerier(ctx)
	key := scope.Key()

	var lastIssued int64
	err := q.GetContext(ctx, &lastIssued, selectCounterForUpdate, key)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := q.ExecContext(ctx, insertCounter, key, time.Now().UTC()); err != nil {
			return 0, postgres.ClassifyError(err)
		}
		// Retry the locking select once: either our insert or a concurrent
		// winner's row is there now.
		if err := q.GetContext(ctx, &lastIssued, selectCounterForUpdate, key); err != nil {
			return 0, postgres.ClassifyError(err)
		}
	} else if err != nil {
		return 0, postgres.ClassifyError(err)
	}

	next := lastIssued + 1
	if _, err := q.ExecContext(ctx, updateCounter, key, next, time.Now().UTC()); err != nil {
		return 0, postgres.ClassifyError(err)
	}

	r.logger.Debugw("allocated sequence number",
		"scope", key,
		"number", next,
	)

	return next, nil
}

func (r *sequenceRepository) Get(ctx context.Context, scope types.ScopeKey) (*sequence.Counter, error) {
	q := r.db.GetQuerier(ctx)

	var counter sequence.Counter
	err := q.GetContext(ctx, &counter, selectCounter, scope.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ierr.NewError("counter not found").
			WithHint("no documents have been numbered in this series yet").
			WithReportableDetails(map[string]any{"scope": scope.Key()}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, postgres.ClassifyError(err)
	}

	return &counter, nil
}
