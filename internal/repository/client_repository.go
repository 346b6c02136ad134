package repository

import (
	"context"
	"errors"
	"fmt"

	"kitchen-orders/internal/database"
	"kitchen-orders/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	procGetClient    = "get_client"
	procUpsertClient = "upsert_client"
)

type clientRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewClientRepository creates a new PostgreSQL-backed client repository.
func NewClientRepository(pool *pgxpool.Pool, logger zerolog.Logger) ClientRepository {
	return &clientRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "client").Logger(),
	}
}

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx, database.ProcedureSQL(procGetClient, 1), phone).
		Scan(&c.Phone, &c.Name, &c.Surname, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("phone", phone).Msg("failed to query client")
		return nil, fmt.Errorf("failed to query client: %w", err)
	}
	return &c, nil
}

// Upsert keeps the stored name when the new one is empty.
func (r *clientRepository) Upsert(ctx context.Context, tx pgx.Tx, client *model.Client) error {
	_, err := tx.Exec(ctx, database.ProcedureSQL(procUpsertClient, 3), client.Phone, client.Name, client.Surname)
	if err != nil {
		r.logger.Error().Err(err).Str("phone", client.Phone).Msg("failed to upsert client")
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}
