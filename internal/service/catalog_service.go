package service

import (
	"context"
	"errors"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrItemNotFound   = errors.New("item not found")
	ErrNegativePrice  = errors.New("price must not be negative")
	ErrNegativeAmount = errors.New("quantity and min_stock must not be negative")
)

// ItemStore is the catalog persistence needed by CatalogService.
// *store.Store satisfies it.
type ItemStore interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemForAdmin(ctx context.Context, id, adminID int64) (*models.Item, error)
	GetAvailableItem(ctx context.Context, id int64) (*models.Item, error)
	ListItemsByOwner(ctx context.Context, adminID int64) ([]models.Item, error)
	ListAvailableItems(ctx context.Context) ([]models.Item, error)
	ListLowStockItems(ctx context.Context, adminID int64) ([]models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id, adminID int64) error
	ListCategoriesByOwner(ctx context.Context, adminID int64) ([]string, error)
	ListAvailableCategories(ctx context.Context) ([]string, error)
}

// CatalogCache caches the customer catalog view. *redisclient.Client
// satisfies it. A nil cache disables caching.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]models.Item, error)
	SetCatalog(ctx context.Context, items []models.Item) error
	InvalidateCatalog(ctx context.Context) error
}

// CatalogService applies the role-scoped access policy over the item
// store: admins see and mutate only their own items, customers see the
// available stock of every admin.
type CatalogService struct {
	store  ItemStore
	cache  CatalogCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(itemStore ItemStore, cache CatalogCache) *CatalogService {
	return &CatalogService{
		store:  itemStore,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ItemRequest carries the fields an admin submits when creating or
// updating an item. Name, category, quantity and price are always
// required and re-validated; the rest default sensibly.
type ItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category" binding:"required"`
	Quantity    *int            `json:"quantity" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	MinStock    *int            `json:"min_stock"`
	IsAvailable *bool           `json:"is_available"`
}

func (r *ItemRequest) validate() error {
	if r.Price.IsNegative() {
		return ErrNegativePrice
	}
	if *r.Quantity < 0 || (r.MinStock != nil && *r.MinStock < 0) {
		return ErrNegativeAmount
	}
	return nil
}

// CreateItem creates an item owned by the calling admin
func (s *CatalogService) CreateItem(ctx context.Context, adminID int64, req *ItemRequest) (*models.Item, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	item := &models.Item{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Quantity:    *req.Quantity,
		Price:       req.Price,
		UserID:      adminID,
		IsAvailable: true,
	}
	if req.MinStock != nil {
		item.MinStock = *req.MinStock
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("Item created",
		zap.Int64("item_id", item.ID),
		zap.Int64("admin_id", adminID))
	return item, nil
}

// UpdateItem replaces the submitted fields of an admin's own item.
// Items owned by other admins surface as not found.
func (s *CatalogService) UpdateItem(ctx context.Context, adminID, itemID int64, req *ItemRequest) (*models.Item, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	current, err := s.store.GetItemForAdmin(ctx, itemID, adminID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	current.Name = req.Name
	current.Description = req.Description
	current.Category = req.Category
	current.Quantity = *req.Quantity
	current.Price = req.Price
	if req.MinStock != nil {
		current.MinStock = *req.MinStock
	}
	if req.IsAvailable != nil {
		current.IsAvailable = *req.IsAvailable
	}

	if err := s.store.UpdateItem(ctx, current); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return current, nil
}

// DeleteItem removes an admin's own item
func (s *CatalogService) DeleteItem(ctx context.Context, adminID, itemID int64) error {
	err := s.store.DeleteItem(ctx, itemID, adminID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("Item deleted",
		zap.Int64("item_id", itemID),
		zap.Int64("admin_id", adminID))
	return nil
}

// GetItem retrieves one item through the caller's view
func (s *CatalogService) GetItem(ctx context.Context, caller *models.User, itemID int64) (*models.Item, error) {
	var (
		item *models.Item
		err  error
	)
	if caller.Role == models.RoleAdmin {
		item, err = s.store.GetItemForAdmin(ctx, itemID, caller.ID)
	} else {
		item, err = s.store.GetAvailableItem(ctx, itemID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

// ListItems retrieves the caller's catalog view: admins get their own
// items, customers get the cached cross-admin available catalog.
func (s *CatalogService) ListItems(ctx context.Context, caller *models.User) ([]models.Item, error) {
	if caller.Role == models.RoleAdmin {
		return s.store.ListItemsByOwner(ctx, caller.ID)
	}

	if s.cache != nil {
		if items, err := s.cache.GetCatalog(ctx); err == nil && items != nil {
			util.CatalogCacheHitsTotal.Inc()
			return items, nil
		}
		util.CatalogCacheMissesTotal.Inc()
	}

	items, err := s.store.ListAvailableItems(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCatalog(ctx, items); err != nil {
			s.logger.Warn("Failed to cache catalog", zap.Error(err))
		}
	}
	return items, nil
}

// ListLowStockItems retrieves an admin's items at or below min_stock
func (s *CatalogService) ListLowStockItems(ctx context.Context, adminID int64) ([]models.Item, error) {
	return s.store.ListLowStockItems(ctx, adminID)
}

// ListCategories retrieves the distinct categories within the caller's
// view
func (s *CatalogService) ListCategories(ctx context.Context, caller *models.User) ([]string, error) {
	if caller.Role == models.RoleAdmin {
		return s.store.ListCategoriesByOwner(ctx, caller.ID)
	}
	return s.store.ListAvailableCategories(ctx)
}

func (s *CatalogService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}
