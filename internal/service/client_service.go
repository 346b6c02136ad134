package service

import (
	"context"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/database"
	"kitchen-orders/internal/model"
	"kitchen-orders/internal/repository"

	"github.com/rs/zerolog"
)

// clientService implements ClientService.
type clientService struct {
	clientRepo repository.ClientRepository
	cache      cache.Store
	ttl        time.Duration
	logger     zerolog.Logger
}

// NewClientService creates a new client service.
func NewClientService(clientRepo repository.ClientRepository, store cache.Store, ttl time.Duration, logger zerolog.Logger) ClientService {
	return &clientService{
		clientRepo: clientRepo,
		cache:      store,
		ttl:        ttl,
		logger:     logger.With().Str("service", "client").Logger(),
	}
}

// GetByPhone retrieves a client, read through the cache. Order creation
// invalidates the entry when it refreshes the client.
func (s *clientService) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	phone, err := validatePhone(phone)
	if err != nil {
		return nil, err
	}

	return cache.GetOrCompute(ctx, s.cache, cache.ClientKey(phone), s.ttl, func(ctx context.Context) (*model.Client, error) {
		client, err := s.clientRepo.GetByPhone(ctx, phone)
		if err != nil {
			s.logger.Error().Err(err).Str("phone", phone).Msg("failed to get client")
			return nil, database.Classify(err)
		}
		if client == nil {
			return nil, model.NotFoundError(model.ErrCodeClientNotFound, "Client with phone %s not found", phone)
		}
		return client, nil
	})
}
