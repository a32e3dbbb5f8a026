package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repositories bundles the stores bound to one transaction.
type Repositories struct {
	Classes    ClassRepository
	Exceptions ExceptionRepository
	Events     EventRepository
}

type TxManager struct {
	db  *sql.DB
	loc *time.Location
}

func NewTxManager(db *sql.DB, loc *time.Location) *TxManager {
	return &TxManager{db: db, loc: orLocal(loc)}
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back when fn returns an error.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	repos := Repositories{
		Classes:    NewClassStore(tx, m.loc),
		Exceptions: NewExceptionStore(tx, m.loc),
		Events:     NewEventStore(tx, m.loc),
	}

	if err := fn(ctx, repos); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
