package testutil

import (
	"context"
	"sync"

	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/types"
)

var _ postgres.IClient = (*InMemoryClient)(nil) // Ensure InMemoryClient implements IClient

// memTx mirrors the transactional contract of the real client for in-memory
// stores: writes are staged and only applied on commit, row locks taken
// during the transaction are released on either outcome.
type memTx struct {
	mu         sync.Mutex
	onCommit   []func()
	onRollback []func()
	counters   map[string]*counterTxState
}

func newMemTx() *memTx {
	return &memTx{counters: make(map[string]*counterTxState)}
}

func (tx *memTx) stage(commit func(), rollback func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if commit != nil {
		tx.onCommit = append(tx.onCommit, commit)
	}
	if rollback != nil {
		tx.onRollback = append(tx.onRollback, rollback)
	}
}

func (tx *memTx) commit() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for _, fn := range tx.onCommit {
		fn()
	}
	tx.onCommit = nil
	tx.onRollback = nil
}

func (tx *memTx) rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for i := len(tx.onRollback) - 1; i >= 0; i-- {
		tx.onRollback[i]()
	}
	tx.onCommit = nil
	tx.onRollback = nil
}

func txFromContext(ctx context.Context) *memTx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*memTx); ok {
		return tx
	}
	return nil
}

// InMemoryClient is an in-memory implementation of the postgres client for
// testing transactional flows without a database.
type InMemoryClient struct{}

func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{}
}

// WithTx executes fn inside a staged transaction. A nested call joins the
// transaction already carried by ctx, matching the savepoint behavior of the
// real client closely enough for service-level tests.
func (c *InMemoryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx := newMemTx()
	ctx = context.WithValue(ctx, types.CtxDBTransaction, tx)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				tx.rollback()
				panic(r)
			}
		}()
		err = fn(ctx)
	}()

	if err != nil {
		tx.rollback()
		return err
	}

	tx.commit()
	return nil
}
