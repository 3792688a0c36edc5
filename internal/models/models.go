package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User represents a registered account. Role is fixed at registration.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Item represents a catalog item owned by one admin. Quantity is the
// authoritative stock count.
type Item struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	MinStock    int             `db:"min_stock" json:"min_stock"`
	UserID      int64           `db:"user_id" json:"user_id"`
	IsAvailable bool            `db:"is_available" json:"is_available"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`

	// Owner contact, populated only for the customer catalog view.
	OwnerName  string `db:"owner_name" json:"owner_name,omitempty"`
	OwnerEmail string `db:"owner_email" json:"owner_email,omitempty"`
}

// LowOnStock reports whether the item has fallen to or below its
// configured minimum.
func (i *Item) LowOnStock() bool {
	return i.Quantity <= i.MinStock
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is one of the five order statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ShippingAddress is embedded in the order row. All fields are required
// at placement time.
type ShippingAddress struct {
	Name    string `db:"ship_name" json:"name"`
	Address string `db:"ship_address" json:"address"`
	City    string `db:"ship_city" json:"city"`
	State   string `db:"ship_state" json:"state"`
	Pincode string `db:"ship_pincode" json:"pincode"`
	Phone   string `db:"ship_phone" json:"phone"`
}

// Complete reports whether every address field is non-empty.
func (a ShippingAddress) Complete() bool {
	return a.Name != "" && a.Address != "" && a.City != "" &&
		a.State != "" && a.Pincode != "" && a.Phone != ""
}

// Order represents a placed order. Line item prices are snapshots taken
// at placement time; later catalog edits never touch them.
type Order struct {
	ID          int64           `db:"id" json:"id"`
	OrderNumber string          `db:"order_number" json:"order_number"`
	UserID      int64           `db:"user_id" json:"user_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      string          `db:"status" json:"status"`

	// Embedded without a db tag so sqlx scans the ship_* columns
	// directly; the json tag nests it on the wire.
	ShippingAddress `json:"shipping_address"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Items []OrderItem `db:"-" json:"items,omitempty"`

	// Customer contact, populated on reads.
	CustomerName  string `db:"customer_name" json:"customer_name,omitempty"`
	CustomerEmail string `db:"customer_email" json:"customer_email,omitempty"`
}

// OrderItem is one line of an order with the unit price frozen at
// placement time.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ItemID    int64           `db:"item_id" json:"item_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`

	// Display fields resolved from the catalog on reads.
	ItemName     string `db:"item_name" json:"item_name,omitempty"`
	ItemCategory string `db:"item_category" json:"item_category,omitempty"`
}
