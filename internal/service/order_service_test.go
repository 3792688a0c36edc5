package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOrderStore mirrors the postgres ledger semantics in memory: the
// whole cart is validated and decremented under one lock, so a failing
// line leaves earlier lines untouched.
type mockOrderStore struct {
	mu     sync.Mutex
	items  map[int64]*models.Item
	orders []*models.Order
	nextID int64

	failNumbers map[string]bool // order numbers to reject as taken
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		items:       make(map[int64]*models.Item),
		failNumbers: make(map[string]bool),
		nextID:      1,
	}
}

func (m *mockOrderStore) addItem(item models.Item) {
	m.items[item.ID] = &item
}

func (m *mockOrderStore) PlaceOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNumbers[order.OrderNumber] {
		return store.ErrOrderNumberTaken
	}

	// validation pass before any mutation
	for _, line := range order.Items {
		item, ok := m.items[line.ItemID]
		if !ok || !item.IsAvailable || item.Quantity < line.Quantity {
			return &store.InsufficientStockError{ItemID: line.ItemID}
		}
	}

	total := decimal.Zero
	for idx := range order.Items {
		line := &order.Items[idx]
		item := m.items[line.ItemID]

		line.UnitPrice = item.Price
		line.ItemName = item.Name
		line.ItemCategory = item.Category
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))

		item.Quantity -= line.Quantity
		if item.Quantity == 0 {
			item.IsAvailable = false
		}
	}

	order.TotalAmount = total
	order.ID = m.nextID
	m.nextID++
	stored := *order
	m.orders = append(m.orders, &stored)
	return nil
}

func (m *mockOrderStore) GetOrderForAdmin(_ context.Context, id, adminID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID != id {
			continue
		}
		for _, line := range o.Items {
			if item, ok := m.items[line.ItemID]; ok && item.UserID == adminID {
				copied := *o
				return &copied, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockOrderStore) ListOrdersByCustomer(_ context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderStore) ListOrdersForAdmin(_ context.Context, adminID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		for _, line := range o.Items {
			if item, ok := m.items[line.ItemID]; ok && item.UserID == adminID {
				out = append(out, *o)
				break
			}
		}
	}
	return out, nil
}

func (m *mockOrderStore) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == orderID {
			o.Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func testCustomer() *models.User {
	return &models.User{ID: 42, Name: "Jane", Email: "jane@example.com", Role: models.RoleCustomer}
}

func testAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Name:    "Jane",
		Address: "1 Main St",
		City:    "Pune",
		State:   "MH",
		Pincode: "411001",
		Phone:   "9999999999",
	}
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc := NewOrderService(newMockOrderStore(), nil, nil)

	_, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		ShippingAddress: testAddress(),
	})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_IncompleteAddress(t *testing.T) {
	svc := NewOrderService(newMockOrderStore(), nil, nil)

	addr := testAddress()
	addr.Pincode = ""
	_, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 1}},
		ShippingAddress: addr,
	})
	assert.ErrorIs(t, err, ErrIncompleteAddress)
}

func TestPlaceOrder_Success(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Laptop", Category: "Electronics",
		Quantity: 15, Price: price("999.99"), MinStock: 5,
		UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	order, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 3}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(price("2999.97")),
		"total = %s", order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(price("999.99")))

	assert.Equal(t, 12, st.items[1].Quantity)
	assert.True(t, st.items[1].IsAvailable)
}

func TestPlaceOrder_DepletesStock(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Notebook", Category: "Stationery",
		Quantity: 1, Price: price("4.99"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 1}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, st.items[1].Quantity)
	assert.False(t, st.items[1].IsAvailable, "depleted item must become unavailable")
}

func TestPlaceOrder_AllOrNothing(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Mouse", Category: "Electronics",
		Quantity: 45, Price: price("25.50"), UserID: 7, IsAvailable: true,
	})
	st.addItem(models.Item{
		ID: 2, Name: "Keyboard", Category: "Electronics",
		Quantity: 2, Price: price("75.00"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items: []OrderLineRequest{
			{ItemID: 1, Quantity: 10},
			{ItemID: 2, Quantity: 5}, // more than in stock
		},
		ShippingAddress: testAddress(),
	})

	var insufficient *store.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(2), insufficient.ItemID)

	assert.Equal(t, 45, st.items[1].Quantity, "valid line must not be decremented")
	assert.Equal(t, 2, st.items[2].Quantity)
	assert.Empty(t, st.orders, "no order record may survive a failed cart")
}

func TestPlaceOrder_UnknownItem(t *testing.T) {
	svc := NewOrderService(newMockOrderStore(), nil, nil)

	_, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 99, Quantity: 1}},
		ShippingAddress: testAddress(),
	})

	var insufficient *store.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(99), insufficient.ItemID)
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Laptop", Category: "Electronics",
		Quantity: 1, Price: price("999.99"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
				Items:           []OrderLineRequest{{ItemID: 1, Quantity: 1}},
				ShippingAddress: testAddress(),
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			var insufficient *store.InsufficientStockError
			assert.ErrorAs(t, err, &insufficient)
		}
	}
	assert.Equal(t, 1, successes, "exactly one of two concurrent orders may win the last unit")
	assert.Equal(t, 0, st.items[1].Quantity)
}

func TestPlaceOrder_PriceSnapshot(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Mouse", Category: "Electronics",
		Quantity: 45, Price: price("25.50"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	order, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 2}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	// a later price change must not touch the persisted order
	st.items[1].Price = price("99.99")

	stored := st.orders[0]
	assert.True(t, stored.Items[0].UnitPrice.Equal(price("25.50")))
	assert.True(t, stored.TotalAmount.Equal(price("51.00")))
	assert.True(t, order.TotalAmount.Equal(price("51.00")))
}

func TestPlaceOrder_TotalMatchesLines(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Mouse", Category: "Electronics",
		Quantity: 45, Price: price("25.50"), UserID: 7, IsAvailable: true,
	})
	st.addItem(models.Item{
		ID: 2, Name: "Notebook", Category: "Stationery",
		Quantity: 8, Price: price("4.99"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	order, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items: []OrderLineRequest{
			{ItemID: 1, Quantity: 2},
			{ItemID: 2, Quantity: 3},
		},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, line := range order.Items {
		sum = sum.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	assert.True(t, order.TotalAmount.Equal(sum), "total %s != line sum %s", order.TotalAmount, sum)
}

func TestPlaceOrder_RetriesTakenOrderNumber(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Mouse", Category: "Electronics",
		Quantity: 45, Price: price("25.50"), UserID: 7, IsAvailable: true,
	})

	// reject every number until one attempt has been burned
	rejected := 0
	st.failNumbers = nil
	stWrapped := &collidingOrderStore{mockOrderStore: st, collisions: 1, rejected: &rejected}
	svc := NewOrderService(stWrapped, nil, nil)

	order, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 1}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rejected, "first attempt should have collided")
	assert.NotEmpty(t, order.OrderNumber)
}

// collidingOrderStore rejects the first n PlaceOrder calls with
// ErrOrderNumberTaken.
type collidingOrderStore struct {
	*mockOrderStore
	collisions int
	rejected   *int
}

func (c *collidingOrderStore) PlaceOrder(ctx context.Context, order *models.Order) error {
	if *c.rejected < c.collisions {
		*c.rejected++
		return store.ErrOrderNumberTaken
	}
	return c.mockOrderStore.PlaceOrder(ctx, order)
}

func TestNewOrderNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := NewOrderNumber()
		assert.True(t, strings.HasPrefix(n, "ORD-"))
		assert.Len(t, n, 16)
		assert.Equal(t, strings.ToUpper(n), n)
		assert.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}

func TestUpdateStatus_InvalidValue(t *testing.T) {
	svc := NewOrderService(newMockOrderStore(), nil, nil)

	admin := &models.User{ID: 7, Role: models.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), admin, 1, "returned")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_NotOwned(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Mouse", Category: "Electronics",
		Quantity: 45, Price: price("25.50"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 1}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	otherAdmin := &models.User{ID: 8, Role: models.RoleAdmin}
	_, err = svc.UpdateStatus(context.Background(), otherAdmin, 1, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus_Permissive(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Mouse", Category: "Electronics",
		Quantity: 45, Price: price("25.50"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), testCustomer(), &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 1}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	admin := &models.User{ID: 7, Role: models.RoleAdmin}

	// any status can follow any other, including leaving delivered
	for _, status := range []string{
		models.OrderStatusDelivered,
		models.OrderStatusPending,
		models.OrderStatusCancelled,
	} {
		order, err := svc.UpdateStatus(context.Background(), admin, 1, status)
		require.NoError(t, err)
		assert.Equal(t, status, order.Status)
	}
}

func TestListMyOrders(t *testing.T) {
	st := newMockOrderStore()
	st.addItem(models.Item{
		ID: 1, Name: "Mouse", Category: "Electronics",
		Quantity: 45, Price: price("25.50"), UserID: 7, IsAvailable: true,
	})
	svc := NewOrderService(st, nil, nil)

	customer := testCustomer()
	_, err := svc.PlaceOrder(context.Background(), customer, &PlaceOrderRequest{
		Items:           []OrderLineRequest{{ItemID: 1, Quantity: 1}},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	orders, err := svc.ListMyOrders(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = svc.ListMyOrders(context.Background(), 1000)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
