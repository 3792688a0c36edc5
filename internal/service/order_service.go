package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrIncompleteAddress = errors.New("all shipping address fields are required")
	ErrInvalidQuantity   = errors.New("line quantity must be at least 1")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
)

// orderNumberAttempts bounds regeneration when an order number collides
// on the unique index.
const orderNumberAttempts = 3

// OrderStore is the ledger persistence needed by OrderService.
// *store.Store satisfies it.
type OrderStore interface {
	PlaceOrder(ctx context.Context, order *models.Order) error
	GetOrderForAdmin(ctx context.Context, id, adminID int64) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, userID int64) ([]models.Order, error)
	ListOrdersForAdmin(ctx context.Context, adminID int64) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
}

// OrderEvents publishes order lifecycle events. *broker.EventPublisher
// satisfies it. A nil publisher disables eventing.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// OrderService orchestrates order placement and status transitions.
type OrderService struct {
	store  OrderStore
	events OrderEvents
	cache  CatalogCache
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(orderStore OrderStore, events OrderEvents, cache CatalogCache) *OrderService {
	return &OrderService{
		store:  orderStore,
		events: events,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// OrderLineRequest is one cart line. The "item" key matches what the
// storefront submits.
type OrderLineRequest struct {
	ItemID   int64 `json:"item" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderRequest is a cart plus shipping address
type PlaceOrderRequest struct {
	Items           []OrderLineRequest     `json:"items" binding:"required"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
}

// PlaceOrder validates the cart, reserves stock for every line
// atomically, snapshots unit prices, and persists the order. Either the
// whole cart commits or nothing does.
func (s *OrderService) PlaceOrder(ctx context.Context, customer *models.User, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	if !req.ShippingAddress.Complete() {
		util.OrdersFailedTotal.WithLabelValues("incomplete_address").Inc()
		return nil, ErrIncompleteAddress
	}
	for _, line := range req.Items {
		if line.Quantity < 1 {
			util.OrdersFailedTotal.WithLabelValues("invalid_quantity").Inc()
			return nil, ErrInvalidQuantity
		}
	}

	order := &models.Order{
		UserID:          customer.ID,
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
	}
	for _, line := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
		})
	}

	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = NewOrderNumber()
		err = s.store.PlaceOrder(ctx, order)
		if !errors.Is(err, store.ErrOrderNumberTaken) {
			break
		}
		s.logger.Warn("Order number collision, regenerating",
			zap.String("order_number", order.OrderNumber))
	}
	if err != nil {
		var insufficient *store.InsufficientStockError
		if errors.As(err, &insufficient) {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, insufficient
		}
		util.OrdersFailedTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("customer_id", customer.ID),
		zap.String("total", order.TotalAmount.String()))

	if s.cache != nil {
		if err := s.cache.InvalidateCatalog(ctx); err != nil {
			s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
		}
	}

	if s.events != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPlaced,
				Timestamp: time.Now(),
			},
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  customer.ID,
			TotalAmount: order.TotalAmount,
		}
		for _, line := range order.Items {
			event.Items = append(event.Items, models.OrderLineData{
				ItemID:    line.ItemID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
		}
		if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	return order, nil
}

// ListMyOrders retrieves the calling customer's orders
func (s *OrderService) ListMyOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.ListOrdersByCustomer(ctx, userID)
}

// ListOrdersForAdmin retrieves orders containing at least one of the
// admin's items
func (s *OrderService) ListOrdersForAdmin(ctx context.Context, adminID int64) ([]models.Order, error) {
	return s.store.ListOrdersForAdmin(ctx, adminID)
}

// UpdateStatus transitions an order's status. The order must contain at
// least one item the admin owns; any status can follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, admin *models.User, orderID int64, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	order, err := s.store.GetOrderForAdmin(ctx, orderID, admin.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = status

	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", oldStatus),
		zap.String("to", status),
		zap.Int64("admin_id", admin.ID))

	if s.events != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID:     orderID,
			OrderNumber: order.OrderNumber,
			OldStatus:   oldStatus,
			NewStatus:   status,
			AdminID:     admin.ID,
		}
		if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	return order, nil
}

// NewOrderNumber generates a human-referenceable order number from a v4
// UUID. Uniqueness is enforced by the storage layer's unique index;
// callers retry on collision.
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:12])
}
