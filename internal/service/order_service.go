package service

import (
	"context"
	"fmt"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/database"
	"kitchen-orders/internal/metrics"
	"kitchen-orders/internal/model"
	"kitchen-orders/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// sideEffectTimeout bounds the post-commit work of one mutation.
const sideEffectTimeout = 3 * time.Second

// orderService implements OrderService.
type orderService struct {
	tx          database.Transactor
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	clientRepo  repository.ClientRepository
	cache       cache.Store
	ttl         time.Duration
	publisher   EventPublisher
	location    *time.Location
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	tx database.Transactor,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	clientRepo repository.ClientRepository,
	store cache.Store,
	ttl time.Duration,
	publisher EventPublisher,
	location *time.Location,
	logger zerolog.Logger,
) OrderService {
	if location == nil {
		location = time.UTC
	}
	return &orderService{
		tx:          tx,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
		cache:       store,
		ttl:         ttl,
		publisher:   publisher,
		location:    location,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// List retrieves a page of orders, read through the cache.
func (s *orderService) List(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	filter, err := normaliseFilter(filter)
	if err != nil {
		return nil, err
	}

	key := cache.OrderListKey(filter.Status, filter.Limit, filter.Page)
	return cache.GetOrCompute(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*model.OrderPage, error) {
		orders, total, err := s.orderRepo.List(ctx, filter)
		if err != nil {
			s.logger.Error().Err(err).Str("status", filter.Status).Msg("failed to list orders")
			return nil, database.Classify(err)
		}
		if orders == nil {
			orders = []model.Order{}
		}

		return &model.OrderPage{
			Data: orders,
			Pagination: model.Pagination{
				Page:       filter.Page,
				Limit:      filter.Limit,
				Total:      total,
				TotalPages: (total + filter.Limit - 1) / filter.Limit,
			},
		}, nil
	}, cache.OrderListsTag)
}

// GetByID retrieves an order, read through the cache.
func (s *orderService) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if err := validateID(id, "order"); err != nil {
		return nil, err
	}

	return cache.GetOrCompute(ctx, s.cache, cache.OrderKey(id), s.ttl, func(ctx context.Context) (*model.Order, error) {
		order, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to get order")
			return nil, database.Classify(err)
		}
		if order == nil {
			return nil, orderNotFound(id)
		}
		return order, nil
	})
}

// CreateOrder validates the request, then writes header, client, payment and
// lines in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (int64, error) {
	if err := validateCreateOrder(req); err != nil {
		s.logger.Warn().Err(err).Msg("order request rejected")
		return 0, err
	}

	if err := s.requireProducts(ctx, req.Products); err != nil {
		return 0, err
	}

	client := model.ClientFromOrder(req)

	var id int64
	err := s.mutate(ctx, "create", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		if id, err = s.orderRepo.Create(ctx, tx, req); err != nil {
			return err
		}
		if client != nil {
			if err = s.clientRepo.Upsert(ctx, tx, client); err != nil {
				return err
			}
		}
		if err = s.orderRepo.CreatePayment(ctx, tx, id, req.PayMethod, req.Amount, false); err != nil {
			return err
		}
		return s.orderRepo.CreateLines(ctx, tx, id, req.Products)
	})
	if err != nil {
		s.logger.Error().Err(err).Int("line_count", len(req.Products)).Msg("failed to create order")
		return 0, err
	}

	s.logger.Info().
		Int64("order_id", id).
		Int("line_count", len(req.Products)).
		Msg("order created successfully")

	if client != nil {
		s.forgetClient(ctx, client.Phone)
	}
	s.afterCommit(ctx, id, model.ActionNewOrder, false)
	return id, nil
}

// UpdateOrder applies a partial update in one transaction.
func (s *orderService) UpdateOrder(ctx context.Context, id int64, req *model.UpdateOrderRequest) error {
	if err := validateUpdateOrder(req); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", id).Msg("order update rejected")
		return err
	}
	if err := validateID(id, "order"); err != nil {
		return err
	}

	if err := s.requireOrder(ctx, id); err != nil {
		return err
	}
	if (req.PayMethod == nil) != (req.Amount == nil) {
		if err := s.requirePayment(ctx, id); err != nil {
			return err
		}
	}
	if req.Products != nil {
		if err := s.requireProducts(ctx, req.Products); err != nil {
			return err
		}
	}

	err := s.mutate(ctx, "update", func(ctx context.Context, tx pgx.Tx) error {
		found, err := s.orderRepo.LockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if !found {
			return orderNotFound(id)
		}

		if err := s.orderRepo.Update(ctx, tx, id, req); err != nil {
			return err
		}

		if req.PayMethod != nil || req.Amount != nil {
			if err := s.savePayment(ctx, tx, id, req.PayMethod, req.Amount); err != nil {
				return err
			}
		}

		if req.Products != nil {
			if err := s.orderRepo.DeleteLines(ctx, tx, id); err != nil {
				return err
			}
			if err := s.orderRepo.CreateLines(ctx, tx, id, req.Products); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to update order")
		return err
	}

	s.logger.Info().Int64("order_id", id).Msg("order updated")
	s.afterCommit(ctx, id, model.ActionUpdateOrder, true)
	return nil
}

// savePayment updates the order's payment, inserting an unpaid one when none exists.
func (s *orderService) savePayment(ctx context.Context, tx pgx.Tx, orderID int64, method *string, amount *decimal.Decimal) error {
	payment, err := s.orderRepo.GetPayment(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if payment == nil {
		// The payment can vanish between the pre-check and the lock.
		if method == nil || amount == nil {
			return missingPaymentFields()
		}
		return s.orderRepo.CreatePayment(ctx, tx, orderID, *method, *amount, false)
	}

	newMethod, newAmount := payment.Method, payment.Amount
	if method != nil {
		newMethod = *method
	}
	if amount != nil {
		newAmount = *amount
	}
	return s.orderRepo.UpdatePayment(ctx, tx, orderID, newMethod, newAmount)
}

// AddProductToOrder adds a new line to an existing order.
func (s *orderService) AddProductToOrder(ctx context.Context, orderID, productID int64, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	if err := validateID(orderID, "order"); err != nil {
		return err
	}
	if err := validateID(productID, "product"); err != nil {
		return err
	}

	if err := s.requireOrder(ctx, orderID); err != nil {
		return err
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return database.Classify(err)
	}
	if product == nil {
		return productNotFound(productID)
	}

	exists, err := s.orderRepo.LineExists(ctx, orderID, productID)
	if err != nil {
		return database.Classify(err)
	}
	if exists {
		return model.ConflictError(model.ErrCodeDuplicateLine,
			fmt.Sprintf("Product %d already exists in order %d", productID, orderID), nil)
	}

	err = s.mutate(ctx, "add_line", func(ctx context.Context, tx pgx.Tx) error {
		return s.orderRepo.AddLine(ctx, tx, orderID, productID, quantity)
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Int64("product_id", productID).Msg("failed to add product to order")
		return err
	}

	s.afterCommit(ctx, orderID, model.ActionUpdateOrder, false)
	return nil
}

// UpdateProductQuantity changes the quantity of an existing line.
func (s *orderService) UpdateProductQuantity(ctx context.Context, orderID, productID int64, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	if err := validateID(orderID, "order"); err != nil {
		return err
	}
	if err := validateID(productID, "product"); err != nil {
		return err
	}

	if err := s.requireOrder(ctx, orderID); err != nil {
		return err
	}

	err := s.mutate(ctx, "update_line", func(ctx context.Context, tx pgx.Tx) error {
		updated, err := s.orderRepo.UpdateLineQuantity(ctx, tx, orderID, productID, quantity)
		if err != nil {
			return err
		}
		if !updated {
			return lineNotFound(orderID, productID)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Int64("product_id", productID).Msg("failed to update line quantity")
		return err
	}

	s.afterCommit(ctx, orderID, model.ActionUpdateOrder, false)
	return nil
}

// DeleteProductFromOrder removes a line from an order.
func (s *orderService) DeleteProductFromOrder(ctx context.Context, orderID, productID int64) error {
	if err := validateID(orderID, "order"); err != nil {
		return err
	}
	if err := validateID(productID, "product"); err != nil {
		return err
	}

	if err := s.requireOrder(ctx, orderID); err != nil {
		return err
	}

	exists, err := s.orderRepo.LineExists(ctx, orderID, productID)
	if err != nil {
		return database.Classify(err)
	}
	if !exists {
		return lineNotFound(orderID, productID)
	}

	err = s.mutate(ctx, "delete_line", func(ctx context.Context, tx pgx.Tx) error {
		deleted, err := s.orderRepo.DeleteLine(ctx, tx, orderID, productID)
		if err != nil {
			return err
		}
		if !deleted {
			return lineNotFound(orderID, productID)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Int64("product_id", productID).Msg("failed to delete product from order")
		return err
	}

	s.afterCommit(ctx, orderID, model.ActionUpdateOrder, false)
	return nil
}

// RecordPayment settles an order under a row lock, so concurrent calls
// leave exactly one paid payment row.
func (s *orderService) RecordPayment(ctx context.Context, orderID int64, method string, amount decimal.Decimal) error {
	if err := validateID(orderID, "order"); err != nil {
		return err
	}
	if err := validatePayMethod(method); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	if err := s.requireOrder(ctx, orderID); err != nil {
		return err
	}

	var settled bool
	err := s.mutate(ctx, "payment", func(ctx context.Context, tx pgx.Tx) error {
		found, err := s.orderRepo.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !found {
			return orderNotFound(orderID)
		}

		payment, err := s.orderRepo.GetPayment(ctx, tx, orderID)
		if err != nil {
			return err
		}

		switch {
		case payment == nil:
			settled = true
			return s.orderRepo.CreatePayment(ctx, tx, orderID, method, amount, true)
		case payment.IsPaid():
			return nil
		default:
			if err := s.orderRepo.UpdatePayment(ctx, tx, orderID, method, amount); err != nil {
				return err
			}
			settled, err = s.orderRepo.MarkPaid(ctx, tx, orderID)
			return err
		}
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to record payment")
		return err
	}

	if !settled {
		s.logger.Info().Int64("order_id", orderID).Msg("order already paid, payment ignored")
		return nil
	}

	s.logger.Info().
		Int64("order_id", orderID).
		Str("method", method).
		Str("amount", amount.String()).
		Msg("payment recorded")

	s.afterCommit(ctx, orderID, model.ActionUpdateOrder, true)
	return nil
}

// DeleteOrder removes an order. The kitchen is notified with the last
// committed state of the order.
func (s *orderService) DeleteOrder(ctx context.Context, id int64) error {
	if err := validateID(id, "order"); err != nil {
		return err
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return database.Classify(err)
	}
	if order == nil {
		return orderNotFound(id)
	}

	err = s.mutate(ctx, "delete", func(ctx context.Context, tx pgx.Tx) error {
		deleted, err := s.orderRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return orderNotFound(id)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to delete order")
		return err
	}

	s.logger.Info().Int64("order_id", id).Msg("order deleted")

	ctx, cancel := detached(ctx)
	defer cancel()

	s.invalidate(ctx, id, true)
	s.publish(ctx, model.NewKitchenEvent(model.ActionDeleteOrder, order, s.location))
	return nil
}

// mutate runs fn in one transaction and records its latency and outcome.
func (s *orderService) mutate(ctx context.Context, op string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	start := time.Now()
	err := s.tx.WithTransaction(ctx, fn)
	metrics.TxLatency.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = string(model.KindOf(err))
	}
	metrics.OrderMutations.WithLabelValues(op, outcome).Inc()

	return err
}

// afterCommit invalidates stale cache entries, re-reads the committed order
// and publishes it. Failures are logged and never reach the caller.
func (s *orderService) afterCommit(ctx context.Context, id int64, action string, finance bool) {
	ctx, cancel := detached(ctx)
	defer cancel()

	s.invalidate(ctx, id, finance)

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil || order == nil {
		s.logger.Error().Err(err).Int64("order_id", id).Str("action", action).Msg("failed to reload committed order, event not published")
		return
	}

	s.publish(ctx, model.NewKitchenEvent(action, order, s.location))
}

func (s *orderService) invalidate(ctx context.Context, id int64, finance bool) {
	s.cache.Delete(ctx, cache.OrderKey(id))

	tags := []string{cache.OrderListsTag}
	if finance {
		tags = append(tags, cache.FinanceTag)
	}
	s.cache.InvalidateTags(ctx, tags...)
}

func (s *orderService) forgetClient(ctx context.Context, phone string) {
	ctx, cancel := detached(ctx)
	defer cancel()

	s.cache.Delete(ctx, cache.ClientKey(phone))
}

func (s *orderService) publish(ctx context.Context, event model.KitchenEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("action", event.Action).
			Int64("order_id", event.OrderID).
			Msg("failed to publish kitchen event")
	}
}

func (s *orderService) requireOrder(ctx context.Context, id int64) error {
	exists, err := s.orderRepo.Exists(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to check order")
		return database.Classify(err)
	}
	if !exists {
		return orderNotFound(id)
	}
	return nil
}

// requirePayment rejects partial payment updates on orders that have no
// payment yet, before any transaction is opened.
func (s *orderService) requirePayment(ctx context.Context, id int64) error {
	exists, err := s.orderRepo.HasPayment(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to check payment")
		return database.Classify(err)
	}
	if !exists {
		return missingPaymentFields()
	}
	return nil
}

func (s *orderService) requireProducts(ctx context.Context, lines []model.LineRequest) error {
	ids := make([]int64, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	if err := s.productRepo.ValidateProductsExist(ctx, ids); err != nil {
		s.logger.Warn().
			Int("product_count", len(ids)).
			Err(err).
			Msg("product validation failed")
		return database.Classify(err)
	}
	return nil
}

// detached keeps post-commit work alive when the request is cancelled.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

func orderNotFound(id int64) error {
	return model.NotFoundError(model.ErrCodeOrderNotFound, "Order %d not found", id)
}

func productNotFound(id int64) error {
	return model.NotFoundError(model.ErrCodeProductNotFound, "Product %d not found", id)
}

func missingPaymentFields() error {
	return model.ValidationError(model.ErrCodeInvalidPayment, "Both payMethod and amount are required to create a payment")
}

func lineNotFound(orderID, productID int64) error {
	return model.NotFoundError(model.ErrCodeLineNotFound, "Product %d not found in order %d", productID, orderID)
}
