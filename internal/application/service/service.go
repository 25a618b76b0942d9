package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restaurantapi/orders-service/internal/cache"
	"github.com/restaurantapi/orders-service/internal/domain"
	"github.com/restaurantapi/orders-service/internal/observability"
)

//go:generate mockgen -source internal/application/service/service.go -destination=internal/application/service/service_mock_test.go -package=service

const listKey = "orders:list"

func orderKey(id string) string { return "order:" + id }

type Storage interface {
	Insert(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListActive(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id string) error
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

type Config struct {
	OrderTTL time.Duration
	ListTTL  time.Duration
}

// Service owns the order state machine and the cache-aside protocol. The
// store is the source of truth; cache failures of any kind degrade to
// store reads and never reach the caller.
type Service struct {
	storage   Storage
	cache     Cache
	publisher Publisher
	logger    *zap.Logger
	metrics   observability.Metrics
	orderTTL  time.Duration
	listTTL   time.Duration
}

func New(storage Storage, cache Cache, publisher Publisher, logger *zap.Logger, metrics observability.Metrics, cfg Config) *Service {
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = 5 * time.Minute
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = time.Minute
	}
	return &Service{
		storage:   storage,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		orderTTL:  cfg.OrderTTL,
		listTTL:   cfg.ListTTL,
	}
}

// Create validates the input, forces the lifecycle start and persists the
// order. Whatever status the caller sent is discarded.
func (s *Service) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	order.ID = uuid.NewString()
	order.Status = domain.StatusInitiated
	order.CreatedAt = time.Now().UTC()
	for i := range order.Items {
		order.Items[i].ID = uuid.NewString()
		order.Items[i].OrderID = order.ID
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.Insert(ctx, &order); err != nil {
		s.logger.Error("insert order failed",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("insert order: %w", err)
	}

	// A fresh id cannot be cached, but removing it guards against id
	// reuse; the list key must go so the new order shows up before the
	// list TTL runs out.
	s.invalidate(ctx, orderKey(order.ID), listKey)
	s.publish(ctx, domain.EventOrderCreated, order)

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("client", order.ClientName),
		zap.Int("items", len(order.Items)),
	)
	return &order, nil
}

// GetByID is the cache-aside read path for a single order.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	key := orderKey(id)

	if b, err := s.cache.Get(ctx, key); err == nil {
		var order domain.Order
		if err := json.Unmarshal(b, &order); err == nil {
			s.metrics.IncCacheHit()
			return &order, nil
		}
		// a snapshot we cannot decode reads as a miss
		s.logger.Warn("corrupt cache entry", zap.String("key", key))
		s.invalidate(ctx, key)
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	s.metrics.IncCacheMiss()

	order, err := s.storage.GetByID(ctx, id)
	if err != nil {
		// absent orders are not cached
		return nil, err
	}

	s.repopulate(ctx, key, order, s.orderTTL)
	return order, nil
}

// ListActive is the cache-aside read path for the active-orders snapshot.
// Delivered orders are excluded by the store query itself.
func (s *Service) ListActive(ctx context.Context) ([]domain.Order, error) {
	if b, err := s.cache.Get(ctx, listKey); err == nil {
		var orders []domain.Order
		if err := json.Unmarshal(b, &orders); err == nil {
			s.metrics.IncCacheHit()
			return orders, nil
		}
		s.logger.Warn("corrupt cache entry", zap.String("key", listKey))
		s.invalidate(ctx, listKey)
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("cache get failed", zap.String("key", listKey), zap.Error(err))
	}
	s.metrics.IncCacheMiss()

	orders, err := s.storage.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}

	s.repopulate(ctx, listKey, orders, s.listTTL)
	return orders, nil
}

// Advance moves an order one step along initiated → sent → delivered.
// The read always goes to the store; acting on a cached snapshot could
// replay a stale transition. Reaching delivered deletes the order, so the
// returned snapshot is the caller's last look at it.
func (s *Service) Advance(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.storage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := order.Status
	order.Status = prev.Next()

	switch {
	case order.Status == domain.StatusDelivered:
		if err := s.storage.Delete(ctx, id); err != nil {
			s.invalidate(ctx, orderKey(id), listKey)
			return nil, fmt.Errorf("delete delivered order: %w", err)
		}
	case order.Status != prev:
		if err := s.storage.Update(ctx, order); err != nil {
			s.invalidate(ctx, orderKey(id), listKey)
			return nil, fmt.Errorf("update order: %w", err)
		}
	default:
		// unknown status: identity transition, nothing to persist
		s.logger.Warn("order has unknown status, leaving unchanged",
			zap.String("order_id", id),
			zap.String("status", string(prev)),
		)
	}

	// invalidation happens after the store commit; readers see either the
	// pre- or post-transition state, never one that was never stored
	s.invalidate(ctx, orderKey(id), listKey)

	switch order.Status {
	case domain.StatusSent:
		s.publish(ctx, domain.EventOrderSent, *order)
	case domain.StatusDelivered:
		s.publish(ctx, domain.EventOrderDelivered, *order)
	}

	s.logger.Info("order advanced",
		zap.String("order_id", id),
		zap.String("from", string(prev)),
		zap.String("to", string(order.Status)),
	)
	return order, nil
}

func (s *Service) repopulate(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("marshal cache snapshot failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, b, ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.cache.Remove(ctx, key); err != nil {
			s.logger.Warn("cache remove failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Service) publish(ctx context.Context, event string, order domain.Order) {
	evt := domain.OrderEvent{Event: event, Order: order, At: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("event", event),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}
