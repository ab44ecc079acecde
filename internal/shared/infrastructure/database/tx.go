package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

type txState struct {
	tx    *sqlx.Tx
	mu    sync.Mutex
	hooks []func()
}

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type Executor interface {
	sqlx.ExtContext
}

// TxManager runs units of work inside a database transaction and fires
// after-commit hooks once the outermost transaction commits.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx runs fn in a transaction. A nested call joins the transaction
// already carried by ctx. Hooks registered through AfterCommit run in
// registration order after a successful commit and are discarded on rollback.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if stateFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	state := &txState{tx: tx}
	txCtx := context.WithValue(ctx, txKey{}, state)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	state.mu.Lock()
	hooks := state.hooks
	state.hooks = nil
	state.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	return nil
}

// AfterCommit registers hook on the transaction carried by ctx.
// It reports false when ctx carries no transaction; the hook is not registered.
func AfterCommit(ctx context.Context, hook func()) bool {
	state := stateFrom(ctx)
	if state == nil {
		return false
	}
	state.mu.Lock()
	state.hooks = append(state.hooks, hook)
	state.mu.Unlock()
	return true
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	return stateFrom(ctx) != nil
}

// WithoutTx returns a context that no longer carries a transaction.
// After-commit hooks use it so follow-up reads do not touch a finished tx.
func WithoutTx(ctx context.Context) context.Context {
	if stateFrom(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, (*txState)(nil))
}

func stateFrom(ctx context.Context) *txState {
	state, _ := ctx.Value(txKey{}).(*txState)
	return state
}

// ExecutorFrom returns the transaction carried by ctx, or db when there is none.
func ExecutorFrom(ctx context.Context, db *sqlx.DB) Executor {
	if state := stateFrom(ctx); state != nil {
		return state.tx
	}
	return db
}
