package store

import (
	"context"
	"database/sql"
	"fmt"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateItem inserts a new catalog item for its owning admin
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (name, description, category, quantity, price, min_stock, user_id, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, item, query,
		item.Name, item.Description, item.Category, item.Quantity,
		item.Price, item.MinStock, item.UserID, item.IsAvailable)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetItemForAdmin retrieves an item scoped to its owning admin.
// Items owned by other admins surface as ErrNotFound.
func (s *Store) GetItemForAdmin(ctx context.Context, id, adminID int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM items WHERE id = $1 AND user_id = $2", id, adminID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetAvailableItem retrieves an in-stock available item with owner
// contact attached, for the customer view
func (s *Store) GetAvailableItem(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, `
		SELECT i.*, u.name AS owner_name, u.email AS owner_email
		FROM items i
		JOIN users u ON u.id = i.user_id
		WHERE i.id = $1 AND i.is_available = TRUE AND i.quantity > 0`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItemsByOwner retrieves all items owned by an admin, newest first
func (s *Store) ListItemsByOwner(ctx context.Context, adminID int64) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM items WHERE user_id = $1 ORDER BY created_at DESC", adminID)
	return items, err
}

// ListAvailableItems retrieves the customer catalog: available in-stock
// items across all admins, newest first, with owner contact attached
func (s *Store) ListAvailableItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items, `
		SELECT i.*, u.name AS owner_name, u.email AS owner_email
		FROM items i
		JOIN users u ON u.id = i.user_id
		WHERE i.is_available = TRUE AND i.quantity > 0
		ORDER BY i.created_at DESC`)
	return items, err
}

// ListLowStockItems retrieves an admin's items at or below their
// minimum stock level, lowest quantity first
func (s *Store) ListLowStockItems(ctx context.Context, adminID int64) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items, `
		SELECT * FROM items
		WHERE user_id = $1 AND quantity <= min_stock
		ORDER BY quantity ASC`, adminID)
	return items, err
}

// GetItemsByIDs retrieves multiple items by ID
func (s *Store) GetItemsByIDs(ctx context.Context, ids []int64) ([]models.Item, error) {
	if len(ids) == 0 {
		return []models.Item{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.Item
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// UpdateItem replaces the mutable fields of an item, scoped to its
// owning admin
func (s *Store) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `
		UPDATE items
		SET name = $3, description = $4, category = $5, quantity = $6,
		    price = $7, min_stock = $8, is_available = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at`

	err := s.db.GetContext(ctx, item, query,
		item.ID, item.UserID, item.Name, item.Description, item.Category,
		item.Quantity, item.Price, item.MinStock, item.IsAvailable)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// DeleteItem removes an item, scoped to its owning admin
func (s *Store) DeleteItem(ctx context.Context, id, adminID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM items WHERE id = $1 AND user_id = $2", id, adminID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategoriesByOwner retrieves the distinct categories of an admin's
// own items
func (s *Store) ListCategoriesByOwner(ctx context.Context, adminID int64) ([]string, error) {
	var categories []string
	err := s.db.SelectContext(ctx, &categories,
		"SELECT DISTINCT category FROM items WHERE user_id = $1 ORDER BY category", adminID)
	return categories, err
}

// ListAvailableCategories retrieves the distinct categories visible to
// customers
func (s *Store) ListAvailableCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.SelectContext(ctx, &categories, `
		SELECT DISTINCT category FROM items
		WHERE is_available = TRUE AND quantity > 0
		ORDER BY category`)
	return categories, err
}
