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

// financeService implements FinanceService.
type financeService struct {
	financeRepo repository.FinanceRepository
	cache       cache.Store
	ttl         time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewFinanceService creates a new finance service.
// Day and month boundaries are taken in location.
func NewFinanceService(financeRepo repository.FinanceRepository, store cache.Store, ttl time.Duration, location *time.Location, logger zerolog.Logger) FinanceService {
	if location == nil {
		location = time.Local
	}
	return &financeService{
		financeRepo: financeRepo,
		cache:       store,
		ttl:         ttl,
		now:         func() time.Time { return time.Now().In(location) },
		logger:      logger.With().Str("service", "finance").Logger(),
	}
}

func (s *financeService) Today(ctx context.Context, method string) (*model.FinanceTotal, error) {
	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.total(ctx, "today", from.Format(time.DateOnly), from, from.AddDate(0, 0, 1), method)
}

func (s *financeService) Monthly(ctx context.Context, year int, month time.Month, method string) (*model.FinanceTotal, error) {
	if year < 1 || year > 9999 {
		return nil, model.ValidationError(model.ErrCodeValidation, "Invalid year %d", year)
	}
	if month < time.January || month > time.December {
		return nil, model.ValidationError(model.ErrCodeValidation, "Invalid month %d: must be between 1 and 12", int(month))
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, s.now().Location())
	return s.total(ctx, "monthly", from.Format("2006-01"), from, from.AddDate(0, 1, 0), method)
}

func (s *financeService) total(ctx context.Context, scope, period string, from, to time.Time, method string) (*model.FinanceTotal, error) {
	if method != "" {
		if err := validatePayMethod(method); err != nil {
			return nil, err
		}
	}

	methodKey := method
	if methodKey == "" {
		methodKey = "all"
	}

	key := cache.FinanceKey(scope, period, methodKey)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*model.FinanceTotal, error) {
		total, count, err := s.financeRepo.TotalPaid(ctx, from, to, method)
		if err != nil {
			s.logger.Error().Err(err).Str("period", period).Msg("failed to total payments")
			return nil, database.Classify(err)
		}
		return &model.FinanceTotal{Period: period, Method: method, Total: total, Count: count}, nil
	}, cache.FinanceTag)
}
