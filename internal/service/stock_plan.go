package service

import (
	"sort"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
)

// StockPlan collects the net stock delta per product for a single request.
// Negative values decrement stock, positive values restore it. The whole plan
// is validated before any of it is applied: a request either adjusts every
// product it touches or none of them.
type StockPlan map[uuid.UUID]int

// PlanForCreate builds the plan for a brand new order: every line item
// decrements its product's stock by the ordered quantity.
func PlanForCreate(items []*domain.OrderItem) StockPlan {
	plan := StockPlan{}
	for _, item := range items {
		plan[item.ProductID] -= item.Quantity
	}
	return plan
}

// PlanForUpdate builds the plan for an edited order. before maps product to
// the quantity held by the stored order. Items removed from the order restore
// their full quantity; items that remain contribute the difference between
// the new and original quantity (original is zero for added items).
func PlanForUpdate(before map[uuid.UUID]int, after []*domain.OrderItem) StockPlan {
	plan := StockPlan{}

	seen := map[uuid.UUID]bool{}
	for _, item := range after {
		seen[item.ProductID] = true
		original := before[item.ProductID]
		plan[item.ProductID] -= item.Quantity - original
	}

	for productID, quantity := range before {
		if !seen[productID] {
			plan[productID] += quantity
		}
	}

	for productID, delta := range plan {
		if delta == 0 {
			delete(plan, productID)
		}
	}

	return plan
}

// Validate checks the plan against a snapshot of the affected products.
// Products failing the non-negative stock invariant are reported in
// product-ID order; nil means the whole batch is safe to apply.
func (p StockPlan) Validate(products map[uuid.UUID]*domain.Product) error {
	ids := make([]uuid.UUID, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		delta := p[id]
		if delta >= 0 {
			continue
		}
		product, ok := products[id]
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

	return nil
}
