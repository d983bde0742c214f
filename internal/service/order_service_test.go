package service

import (
	"context"
	"errors"
	"testing"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock repositories for testing

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	found := map[uuid.UUID]*domain.Product{}
	for _, id := range ids {
		if product, ok := m.products[id]; ok {
			copied := *product
			found[id] = &copied
		}
	}
	return found, nil
}

func (m *mockProductRepository) List(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return nil, 0, nil
}

func (m *mockProductRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return nil, 0, nil
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	return len(m.products), nil
}

type mockCustomerRepository struct {
	customers map[uuid.UUID]*domain.Customer
}

func newMockCustomerRepository() *mockCustomerRepository {
	return &mockCustomerRepository{customers: make(map[uuid.UUID]*domain.Customer)}
}

func (m *mockCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	m.customers[customer.ID] = customer
	return nil
}

func (m *mockCustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	if _, ok := m.customers[customer.ID]; !ok {
		return repository.ErrCustomerNotFound
	}
	m.customers[customer.ID] = customer
	return nil
}

func (m *mockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.customers[id]; !ok {
		return repository.ErrCustomerNotFound
	}
	delete(m.customers, id)
	return nil
}

func (m *mockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return customer, nil
}

func (m *mockCustomerRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error) {
	return nil, 0, nil
}

func (m *mockCustomerRepository) Count(ctx context.Context) (int, error) {
	return len(m.customers), nil
}

// mockOrderRepository mimics the real repository's all-or-nothing contract:
// stock deltas are applied to the product map only when the write succeeds.
type mockOrderRepository struct {
	orders   map[uuid.UUID]*domain.Order
	products *mockProductRepository
}

func newMockOrderRepository(products *mockProductRepository) *mockOrderRepository {
	return &mockOrderRepository{
		orders:   make(map[uuid.UUID]*domain.Order),
		products: products,
	}
}

func (m *mockOrderRepository) applyDeltas(deltas map[uuid.UUID]int) error {
	for id, delta := range deltas {
		product, ok := m.products.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		if product.StockQuantity+delta < 0 {
			return &repository.InsufficientStockError{
				ProductID: id,
				Available: product.StockQuantity,
				Requested: -delta,
			}
		}
	}
	for id, delta := range deltas {
		m.products.products[id].StockQuantity += delta
	}
	return nil
}

func (m *mockOrderRepository) CreateWithItems(ctx context.Context, order *domain.Order, stockDeltas map[uuid.UUID]int) error {
	if err := m.applyDeltas(stockDeltas); err != nil {
		return err
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) UpdateWithItems(ctx context.Context, order *domain.Order, stockDeltas map[uuid.UUID]int) error {
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	if err := m.applyDeltas(stockDeltas); err != nil {
		return err
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) DeleteRestoringStock(ctx context.Context, id uuid.UUID) error {
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	deltas := map[uuid.UUID]int{}
	for _, item := range order.Items {
		deltas[item.ProductID] += item.Quantity
	}
	if err := m.applyDeltas(deltas); err != nil {
		return err
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) List(ctx context.Context, customerID *uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return nil, 0, nil
}

func (m *mockOrderRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Order, error) {
	return nil, nil
}

func (m *mockOrderRepository) Count(ctx context.Context) (int, error) {
	return len(m.orders), nil
}

type orderFixture struct {
	service   OrderService
	orders    *mockOrderRepository
	products  *mockProductRepository
	customers *mockCustomerRepository
	customer  *domain.Customer
}

func newOrderFixture() *orderFixture {
	products := newMockProductRepository()
	customers := newMockCustomerRepository()
	orders := newMockOrderRepository(products)

	customer := &domain.Customer{ID: uuid.New(), Name: "Ada"}
	customers.customers[customer.ID] = customer

	return &orderFixture{
		service:   NewOrderService(orders, products, customers),
		orders:    orders,
		products:  products,
		customers: customers,
		customer:  customer,
	}
}

func (f *orderFixture) addProduct(price string, stock int) *domain.Product {
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          "product-" + uuid.New().String()[:8],
		CategoryID:    uuid.New(),
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	f.products.products[product.ID] = product
	return product
}

func TestOrderCreate_DecrementsStockAndCapturesPrice(t *testing.T) {
	f := newOrderFixture()
	product := f.addProduct("12.50", 10)

	order, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 3}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, f.products.products[product.ID].StockQuantity)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].PriceAtOrder.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("37.50")))
	assert.Equal(t, domain.StatusPending, order.Status)
}

func TestOrderCreate_StatusDerivedFromPayment(t *testing.T) {
	tests := []struct {
		name string
		paid string
		want domain.OrderStatus
	}{
		{"unpaid", "0", domain.StatusPending},
		{"partially paid", "10.00", domain.StatusPartial},
		{"exactly paid", "25.00", domain.StatusPaid},
		{"overpaid", "40.00", domain.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			product := f.addProduct("12.50", 10)

			order, err := f.service.Create(context.Background(), OrderInput{
				CustomerID: f.customer.ID,
				AmountPaid: decimal.RequireFromString(tt.paid),
				Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, order.Status)
		})
	}
}

func TestOrderCreate_InsufficientStockRejectsWholeOrder(t *testing.T) {
	f := newOrderFixture()
	plenty := f.addProduct("5.00", 100)
	scarce := f.addProduct("9.00", 2)

	_, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items: []OrderItemInput{
			{ProductID: plenty.ID, Quantity: 10},
			{ProductID: scarce.ID, Quantity: 3},
		},
	}, nil)

	var stockErr *repository.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, scarce.ID, stockErr.ProductID)

	// Nothing was applied, not even the line that had enough stock
	assert.Equal(t, 100, f.products.products[plenty.ID].StockQuantity)
	assert.Equal(t, 2, f.products.products[scarce.ID].StockQuantity)
	assert.Empty(t, f.orders.orders)
}

func TestOrderCreate_Validation(t *testing.T) {
	f := newOrderFixture()
	product := f.addProduct("5.00", 10)

	t.Run("no items", func(t *testing.T) {
		_, err := f.service.Create(context.Background(), OrderInput{
			CustomerID: f.customer.ID,
		}, nil)
		assert.ErrorIs(t, err, ErrNoItems)
	})

	t.Run("duplicate product", func(t *testing.T) {
		_, err := f.service.Create(context.Background(), OrderInput{
			CustomerID: f.customer.ID,
			Items: []OrderItemInput{
				{ProductID: product.ID, Quantity: 1},
				{ProductID: product.ID, Quantity: 2},
			},
		}, nil)
		assert.ErrorIs(t, err, ErrDuplicateProduct)
	})

	t.Run("negative payment", func(t *testing.T) {
		_, err := f.service.Create(context.Background(), OrderInput{
			CustomerID: f.customer.ID,
			AmountPaid: decimal.RequireFromString("-1"),
			Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		}, nil)
		assert.ErrorIs(t, err, ErrNegativePayment)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := f.service.Create(context.Background(), OrderInput{
			CustomerID: uuid.New(),
			Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		}, nil)
		assert.ErrorIs(t, err, repository.ErrCustomerNotFound)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.service.Create(context.Background(), OrderInput{
			CustomerID: f.customer.ID,
			Items:      []OrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
		}, nil)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
	})
}

func TestOrderUpdate_QuantityIncreaseWithinStock(t *testing.T) {
	f := newOrderFixture()
	product := f.addProduct("10.00", 10)

	order, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 8, f.products.products[product.ID].StockQuantity)

	updated, err := f.service.Update(context.Background(), order.ID, OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, f.products.products[product.ID].StockQuantity)
	assert.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("50.00")))
}

func TestOrderUpdate_QuantityIncreaseBeyondStockRejected(t *testing.T) {
	f := newOrderFixture()
	product := f.addProduct("10.00", 5)

	order, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, f.products.products[product.ID].StockQuantity)

	// Going from 2 to 6 needs 4 more units but only 3 remain
	_, err = f.service.Update(context.Background(), order.ID, OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.RequireFromString("999.00"),
		Notes:      "should not stick",
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 6}},
	})

	var stockErr *repository.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)

	// The order's other changes were not persisted either
	stored := f.orders.orders[order.ID]
	assert.Equal(t, "", stored.Notes)
	assert.True(t, stored.AmountPaid.Equal(decimal.Zero))
	assert.Equal(t, 3, f.products.products[product.ID].StockQuantity)
}

func TestOrderUpdate_RemovedItemRestoresStock(t *testing.T) {
	f := newOrderFixture()
	kept := f.addProduct("4.00", 10)
	removed := f.addProduct("6.00", 10)

	order, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items: []OrderItemInput{
			{ProductID: kept.ID, Quantity: 1},
			{ProductID: removed.ID, Quantity: 4},
		},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 6, f.products.products[removed.ID].StockQuantity)

	_, err = f.service.Update(context.Background(), order.ID, OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: kept.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, f.products.products[removed.ID].StockQuantity)
}

func TestOrderUpdate_KeepsCapturedPrice(t *testing.T) {
	f := newOrderFixture()
	product := f.addProduct("10.00", 20)

	order, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
	}, nil)
	require.NoError(t, err)

	// The catalog price changes after the order was placed
	f.products.products[product.ID].Price = decimal.RequireFromString("99.00")

	updated, err := f.service.Update(context.Background(), order.ID, OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.True(t, updated.Items[0].PriceAtOrder.Equal(decimal.RequireFromString("10.00")),
		"surviving line keeps its historical price")
	assert.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("30.00")))
}

func TestOrderUpdate_TerminalStatusFrozen(t *testing.T) {
	f := newOrderFixture()
	product := f.addProduct("10.00", 20)

	order, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Status:     domain.StatusCancelled,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, order.Status)

	// A later edit that does not touch status leaves it cancelled even
	// though the payment now covers the total
	updated, err := f.service.Update(context.Background(), order.ID, OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.RequireFromString("10.00"),
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
}

func TestOrderDelete_RestoresStock(t *testing.T) {
	f := newOrderFixture()
	product := f.addProduct("3.00", 9)

	order, err := f.service.Create(context.Background(), OrderInput{
		CustomerID: f.customer.ID,
		AmountPaid: decimal.Zero,
		Items:      []OrderItemInput{{ProductID: product.ID, Quantity: 4}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 5, f.products.products[product.ID].StockQuantity)

	require.NoError(t, f.service.Delete(context.Background(), order.ID))

	assert.Equal(t, 9, f.products.products[product.ID].StockQuantity)
	assert.Empty(t, f.orders.orders)
}

func TestOrderDelete_NotFound(t *testing.T) {
	f := newOrderFixture()
	err := f.service.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
