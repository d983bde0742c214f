package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the payment/fulfilment state of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusPartial    OrderStatus = "PARTIAL"
	StatusPaid       OrderStatus = "PAID"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// ValidStatus reports whether s is one of the known order statuses
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPartial, StatusPaid, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status is frozen against automatic recomputation.
// DELIVERED and CANCELLED are only ever set manually.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order is an aggregate of line items placed by a customer
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CustomerID  uuid.UUID       `json:"customer_id" db:"customer_id"`
	OrderDate   time.Time       `json:"order_date" db:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	Status      OrderStatus     `json:"status" db:"status"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty" db:"created_by"`
	Notes       string          `json:"notes" db:"notes"`
	Items       []*OrderItem    `json:"items"`
}

// OrderItem is a single product line on an order. PriceAtOrder is captured
// from the product when the item is first persisted and never recalculated,
// so later price changes do not rewrite order history.
type OrderItem struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity     int             `json:"quantity" db:"quantity"`
	PriceAtOrder decimal.Decimal `json:"price_at_order" db:"price_at_order"`
}

// LineTotal returns quantity x captured price for this item
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtOrder.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CalculateTotal sums the line totals of the order's current items. If the
// computed value differs from the stored total it is updated in memory; the
// caller is responsible for persisting. Returns the computed total.
func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	if !o.TotalAmount.Equal(total) {
		o.TotalAmount = total
	}
	return total
}

// UpdateStatus derives the status from amount_paid vs total_amount. Terminal
// statuses are left untouched. amount_paid equal to total_amount counts as PAID.
func (o *Order) UpdateStatus() {
	if o.Status.Terminal() {
		return
	}
	switch {
	case o.AmountPaid.LessThanOrEqual(decimal.Zero):
		o.Status = StatusPending
	case o.AmountPaid.LessThan(o.TotalAmount):
		o.Status = StatusPartial
	default:
		o.Status = StatusPaid
	}
}

// AmountDue returns the outstanding balance on the order
func (o *Order) AmountDue() decimal.Decimal {
	return o.TotalAmount.Sub(o.AmountPaid)
}
