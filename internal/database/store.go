package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kitchen-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Transactor runs a function inside a single database transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// Store owns the connection pool and the transaction boundary used by every mutation.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  zerolog.Logger
}

// NewStore creates a store. timeout bounds connection acquisition and the whole transaction.
func NewStore(pool *pgxpool.Pool, timeout time.Duration, logger zerolog.Logger) *Store {
	return &Store{
		pool:    pool,
		timeout: timeout,
		logger:  logger.With().Str("component", "store").Logger(),
	}
}

// Pool returns the underlying pool for read queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// WithTransaction begins a transaction, runs fn with the bounded context and
// commits. Any error from fn or from the commit rolls the transaction back, and
// the connection is always released. Returned errors are classified into
// domain error kinds.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return Classify(fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		// Rollback after a successful commit is a no-op returning ErrTxClosed.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	if err = fn(ctx, tx); err != nil {
		s.logger.Debug().Err(err).Msg("transaction aborted")
		return Classify(err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to commit transaction")
		return Classify(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// PostgreSQL error codes handled by Classify.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgQueryCanceled        = "57014"
	pgAdminShutdown        = "57P01"

	// Class 22 covers out-of-range and malformed values, e.g. 22003 and 22P02.
	pgDataExceptionClass = "22"
)

// Classify maps a store error onto the domain error taxonomy. Errors that are
// already domain errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var de *model.DomainError
	if errors.As(err, &de) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return model.ConflictError(model.ErrCodeConflict, "Resource already exists", err)
		case pgErr.Code == pgForeignKeyViolation:
			return model.ConflictError(model.ErrCodeConflict, "Resource is referenced by another record", err)
		case pgErr.Code == pgCheckViolation:
			return model.ValidationError(model.ErrCodeValidation, "Value rejected by constraint %s", pgErr.ConstraintName)
		case strings.HasPrefix(pgErr.Code, pgDataExceptionClass):
			return model.ValidationError(model.ErrCodeValidation, "Value out of range or malformed")
		case pgErr.Code == pgSerializationFailure, pgErr.Code == pgDeadlockDetected,
			pgErr.Code == pgQueryCanceled, pgErr.Code == pgAdminShutdown,
			strings.HasPrefix(pgErr.Code, "08"):
			return model.TransientError("Database temporarily unavailable", err)
		}
		return model.InternalError("Database error", err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err) {
		return model.TransientError("Database temporarily unavailable", err)
	}

	return model.InternalError("Database error", err)
}

// ProcedureSQL returns the statement invoking the stored function name with argc
// positional arguments.
func ProcedureSQL(name string, argc int) string {
	params := make([]string, argc)
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("SELECT * FROM %s(%s)", pgx.Identifier{name}.Sanitize(), strings.Join(params, ", "))
}
