package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type financeRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewFinanceRepository creates a new PostgreSQL-backed finance repository.
func NewFinanceRepository(pool *pgxpool.Pool, logger zerolog.Logger) FinanceRepository {
	return &financeRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "finance").Logger(),
	}
}

// TotalPaid sums payments settled in [from, to). An empty method matches every method.
func (r *financeRepository) TotalPaid(ctx context.Context, from, to time.Time, method string) (decimal.Decimal, int, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::text, COUNT(*)
		FROM payments
		WHERE paid_at >= $1 AND paid_at < $2
		  AND ($3::text = '' OR method = $3::text)
	`

	var (
		sum   string
		count int
	)
	if err := r.pool.QueryRow(ctx, query, from, to, method).Scan(&sum, &count); err != nil {
		r.logger.Error().Err(err).Time("from", from).Time("to", to).Msg("failed to sum payments")
		return decimal.Zero, 0, fmt.Errorf("failed to sum payments: %w", err)
	}

	total, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to parse payment total %q: %w", sum, err)
	}

	return total, count, nil
}
