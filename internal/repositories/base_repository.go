package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"triphub/internal/database"
)

// Querier is the query surface shared by the database manager and an open
// transaction, so every repository works identically inside and outside a
// unit of work.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// BaseRepository carries the querier and logger common to all repositories.
type BaseRepository struct {
	q      Querier
	logger *zap.Logger
}

// NewBaseRepository creates a repository base bound to the pool.
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{q: db, logger: logger}
}

// withQuerier returns a copy bound to a different querier (a transaction).
func (r *BaseRepository) withQuerier(q Querier) *BaseRepository {
	return &BaseRepository{q: q, logger: r.logger}
}

// IsNotFound reports whether err is the no-rows sentinel.
func (r *BaseRepository) IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// GetLogger returns the logger instance.
func (r *BaseRepository) GetLogger() *zap.Logger {
	return r.logger
}

// ===============================
// SQL UNIT OF WORK
// ===============================

// sqlUnitOfWork implements UnitOfWork over the Postgres pool. Each Do call
// opens one transaction and hands out tx-bound ledger and state repositories.
type sqlUnitOfWork struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewUnitOfWork creates the store-backed unit of work.
func NewUnitOfWork(db *database.Manager, logger *zap.Logger) UnitOfWork {
	return &sqlUnitOfWork{db: db, logger: logger}
}

type sqlTx struct {
	actions     ActionRepository
	progression ProgressionRepository
}

func (t *sqlTx) Actions() ActionRepository         { return t.actions }
func (t *sqlTx) Progression() ProgressionRepository { return t.progression }

func (u *sqlUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	base := &BaseRepository{q: tx, logger: u.logger}
	bound := &sqlTx{
		actions:     &actionRepository{BaseRepository: base},
		progression: &progressionRepository{BaseRepository: base},
	}

	if err := fn(ctx, bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			u.logger.Error("Failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("cause", err),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
