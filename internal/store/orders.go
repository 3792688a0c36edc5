package store

import (
	"context"
	"database/sql"
	"fmt"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PlaceOrder runs the whole cart in a single transaction: every line is
// row-locked, checked for availability and sufficiency, priced from the
// current catalog row, and decremented. Any failure rolls the whole
// transaction back, so no partial decrement is ever visible.
//
// On success the order's ID, timestamps, total and line snapshots are
// filled in. A *InsufficientStockError names the first failing line.
func (s *Store) PlaceOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total := decimal.Zero
	for idx := range order.Items {
		line := &order.Items[idx]

		var item models.Item
		err := tx.GetContext(ctx, &item, `
			SELECT * FROM items
			WHERE id = $1 AND is_available = TRUE AND quantity >= $2
			FOR UPDATE`, line.ItemID, line.Quantity)
		if err == sql.ErrNoRows {
			return &InsufficientStockError{ItemID: line.ItemID}
		}
		if err != nil {
			return fmt.Errorf("failed to lock item %d: %w", line.ItemID, err)
		}

		line.UnitPrice = item.Price
		line.ItemName = item.Name
		line.ItemCategory = item.Category
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))

		remaining := item.Quantity - line.Quantity
		_, err = tx.ExecContext(ctx, `
			UPDATE items
			SET quantity = $2,
			    is_available = CASE WHEN $2 = 0 THEN FALSE ELSE is_available END,
			    updated_at = NOW()
			WHERE id = $1`, item.ID, remaining)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for item %d: %w", item.ID, err)
		}
	}
	order.TotalAmount = total

	query := `
		INSERT INTO orders (order_number, user_id, total_amount, status,
			ship_name, ship_address, ship_city, ship_state, ship_pincode, ship_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.OrderNumber, order.UserID, order.TotalAmount, order.Status,
		order.ShippingAddress.Name, order.ShippingAddress.Address,
		order.ShippingAddress.City, order.ShippingAddress.State,
		order.ShippingAddress.Pincode, order.ShippingAddress.Phone)
	if isUniqueViolation(err, "orders_order_number_key") {
		return ErrOrderNumberTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for idx := range order.Items {
		line := &order.Items[idx]
		line.OrderID = order.ID
		err := tx.GetContext(ctx, &line.ID, `
			INSERT INTO order_items (order_id, item_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			line.OrderID, line.ItemID, line.Quantity, line.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order with customer contact and line items
// resolved
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT o.*, u.name AS customer_name, u.email AS customer_email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachOrderItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForAdmin retrieves an order only if it contains at least one
// item owned by the admin; anything else is ErrNotFound
func (s *Store) GetOrderForAdmin(ctx context.Context, id, adminID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT o.*, u.name AS customer_name, u.email AS customer_email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1 AND EXISTS (
			SELECT 1 FROM order_items oi
			JOIN items i ON i.id = oi.item_id
			WHERE oi.order_id = o.id AND i.user_id = $2
		)`, id, adminID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachOrderItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByCustomer retrieves a customer's orders, newest first
func (s *Store) ListOrdersByCustomer(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT o.*, u.name AS customer_name, u.email AS customer_email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return orders, s.attachOrderItemsSlice(ctx, orders)
}

// ListOrdersForAdmin retrieves orders containing at least one item the
// admin owns, newest first
func (s *Store) ListOrdersForAdmin(ctx context.Context, adminID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT o.*, u.name AS customer_name, u.email AS customer_email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE EXISTS (
			SELECT 1 FROM order_items oi
			JOIN items i ON i.id = oi.item_id
			WHERE oi.order_id = o.id AND i.user_id = $1
		)
		ORDER BY o.created_at DESC`, adminID)
	if err != nil {
		return nil, err
	}
	return orders, s.attachOrderItemsSlice(ctx, orders)
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

func (s *Store) attachOrderItemsSlice(ctx context.Context, orders []models.Order) error {
	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	return s.attachOrderItems(ctx, refs)
}

// attachOrderItems loads the line items for a set of orders in one
// query, with item name/category resolved for display
func (s *Store) attachOrderItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	// LEFT JOIN so lines survive catalog deletions; orders are never
	// deleted and keep their own price/quantity snapshot.
	query, args, err := sqlx.In(`
		SELECT oi.*, COALESCE(i.name, '') AS item_name, COALESCE(i.category, '') AS item_category
		FROM order_items oi
		LEFT JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.id`, ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var lines []models.OrderItem
	if err := s.db.SelectContext(ctx, &lines, query, args...); err != nil {
		return err
	}

	for _, line := range lines {
		if o, ok := byID[line.OrderID]; ok {
			o.Items = append(o.Items, line)
		}
	}
	return nil
}
