package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoItems          = errors.New("order must contain at least one item")
	ErrDuplicateProduct = errors.New("order lists the same product more than once")
	ErrInvalidStatus    = errors.New("unknown order status")
	ErrNegativePayment  = errors.New("amount paid cannot be negative")
)

// OrderItemInput is a requested line: product and quantity. The unit price is
// never taken from the caller; it is captured from the product at creation.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderInput carries the editable order fields plus the full line item set
type OrderInput struct {
	CustomerID uuid.UUID
	AmountPaid decimal.Decimal
	Status     domain.OrderStatus
	Notes      string
	Items      []OrderItemInput
}

// OrderService defines the interface for order business logic
type OrderService interface {
	Create(ctx context.Context, input OrderInput, createdBy *uuid.UUID) (*domain.Order, error)
	Update(ctx context.Context, id uuid.UUID, input OrderInput) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, customerID *uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
	}
}

// manualStatus reports whether s is a status a user sets by hand rather than
// one derived from payments.
func manualStatus(s domain.OrderStatus) bool {
	return s == domain.StatusProcessing || s == domain.StatusDelivered || s == domain.StatusCancelled
}

func validateInput(input OrderInput) error {
	if len(input.Items) == 0 {
		return ErrNoItems
	}
	if input.AmountPaid.IsNegative() {
		return ErrNegativePayment
	}
	if input.Status != "" && !domain.ValidStatus(input.Status) {
		return ErrInvalidStatus
	}
	seen := map[uuid.UUID]bool{}
	for _, item := range input.Items {
		if seen[item.ProductID] {
			return ErrDuplicateProduct
		}
		seen[item.ProductID] = true
	}
	return nil
}

// loadProducts fetches a snapshot of every product named by the items
func (s *orderService) loadProducts(ctx context.Context, items []OrderItemInput) (map[uuid.UUID]*domain.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, repository.ErrProductNotFound
		}
	}

	return products, nil
}

// Create builds a new order. Each line captures the product's current price,
// the full stock plan is validated before anything is written, and the order,
// items, and stock decrements commit in one transaction.
func (s *orderService) Create(ctx context.Context, input OrderInput, createdBy *uuid.UUID) (*domain.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, err := s.customerRepo.FindByID(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		OrderDate:  time.Now(),
		AmountPaid: input.AmountPaid,
		Status:     domain.StatusPending,
		CreatedBy:  createdBy,
		Notes:      input.Notes,
	}
	if input.Status != "" {
		order.Status = input.Status
	}

	for _, in := range input.Items {
		order.Items = append(order.Items, &domain.OrderItem{
			ID:           uuid.New(),
			OrderID:      order.ID,
			ProductID:    in.ProductID,
			Quantity:     in.Quantity,
			PriceAtOrder: products[in.ProductID].Price,
		})
	}

	plan := PlanForCreate(order.Items)
	if err := plan.Validate(products); err != nil {
		return nil, err
	}

	order.CalculateTotal()
	if !manualStatus(input.Status) {
		order.UpdateStatus()
	}

	if err := s.orderRepo.CreateWithItems(ctx, order, plan); err != nil {
		return nil, err
	}

	return order, nil
}

// Update edits an order's fields and replaces its line item set. Existing
// lines keep their captured price; removed lines restore their stock; added
// or grown lines are checked against available stock as one batch before any
// adjustment is applied. order_date is never changed.
func (s *orderService) Update(ctx context.Context, id uuid.UUID, input OrderInput) (*domain.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.customerRepo.FindByID(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	before := map[uuid.UUID]int{}
	existingItems := map[uuid.UUID]*domain.OrderItem{}
	for _, item := range existing.Items {
		before[item.ProductID] = item.Quantity
		existingItems[item.ProductID] = item
	}

	order := &domain.Order{
		ID:          existing.ID,
		CustomerID:  input.CustomerID,
		OrderDate:   existing.OrderDate,
		TotalAmount: existing.TotalAmount,
		AmountPaid:  input.AmountPaid,
		Status:      existing.Status,
		CreatedBy:   existing.CreatedBy,
		Notes:       input.Notes,
	}
	if input.Status != "" {
		order.Status = input.Status
	}

	for _, in := range input.Items {
		item := &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			// New lines capture the current price
			PriceAtOrder: products[in.ProductID].Price,
		}
		// Surviving lines keep their identity and captured price
		if prev, ok := existingItems[in.ProductID]; ok {
			item.ID = prev.ID
			item.PriceAtOrder = prev.PriceAtOrder
		}
		order.Items = append(order.Items, item)
	}

	plan := PlanForUpdate(before, order.Items)
	if err := plan.Validate(products); err != nil {
		return nil, err
	}

	order.CalculateTotal()
	if !manualStatus(input.Status) {
		order.UpdateStatus()
	}

	if err := s.orderRepo.UpdateWithItems(ctx, order, plan); err != nil {
		return nil, err
	}

	return order, nil
}

// Delete removes an order, restoring each item's quantity to its product
func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orderRepo.DeleteRestoringStock(ctx, id)
}

// Get retrieves an order with its items
func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// List retrieves orders newest first with pagination. A non-nil customerID
// restricts the listing to that customer's orders.
func (s *orderService) List(ctx context.Context, customerID *uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orderRepo.List(ctx, customerID, page, pageSize)
}
