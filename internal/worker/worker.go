package worker

import (
	"context"
	"time"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockAlertWorker consumes order events and raises low-stock alerts
// for the items that each order touched. Alerting is internal only:
// logs, metrics and a LOW_STOCK event for downstream consumers.
type StockAlertWorker struct {
	consumer  *broker.Consumer
	store     *store.Store
	publisher *broker.EventPublisher
	cache     service.CatalogCache
	logger    *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(
	consumer *broker.Consumer,
	st *store.Store,
	publisher *broker.EventPublisher,
	cache service.CatalogCache,
) *StockAlertWorker {
	return &StockAlertWorker{
		consumer:  consumer,
		store:     st,
		publisher: publisher,
		cache:     cache,
		logger:    util.GetLogger(),
	}
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker")

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)

	return w.consumer.StartConsuming(ctx, eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

// handleOrderPlaced re-reads the ordered items and alerts on any that
// have fallen to or below their minimum stock level.
func (w *StockAlertWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ids := make([]int64, 0, len(event.Items))
	for _, line := range event.Items {
		ids = append(ids, line.ItemID)
	}

	items, err := w.store.GetItemsByIDs(ctx, ids)
	if err != nil {
		return err
	}

	for i := range items {
		item := &items[i]
		if !item.LowOnStock() {
			continue
		}

		util.LowStockAlertsTotal.Inc()
		w.logger.Warn("Item low on stock",
			zap.Int64("item_id", item.ID),
			zap.String("name", item.Name),
			zap.Int("quantity", item.Quantity),
			zap.Int("min_stock", item.MinStock),
			zap.Int64("owner_id", item.UserID))

		if w.publisher != nil {
			alert := &models.LowStockEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeLowStock,
					Timestamp: time.Now(),
				},
				ItemID:   item.ID,
				ItemName: item.Name,
				Quantity: item.Quantity,
				MinStock: item.MinStock,
				OwnerID:  item.UserID,
			}
			if err := w.publisher.PublishLowStock(ctx, alert); err != nil {
				w.logger.Error("Failed to publish LowStock event", zap.Error(err))
			}
		}
	}

	// The order already decremented stock; drop the cached catalog so
	// customers stop seeing depleted items.
	if w.cache != nil {
		if err := w.cache.InvalidateCatalog(ctx); err != nil {
			w.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
		}
	}

	return nil
}
