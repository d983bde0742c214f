package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"stockroom/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateLineItem = errors.New("order already contains this product")
)

// InsufficientStockError is returned when a stock decrement would drive a
// product's quantity below zero.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// OrderRepository defines the interface for order data access. All mutations
// apply the order, its items, and the accompanying stock deltas in a single
// transaction: either everything commits or nothing does.
type OrderRepository interface {
	CreateWithItems(ctx context.Context, order *domain.Order, stockDeltas map[uuid.UUID]int) error
	UpdateWithItems(ctx context.Context, order *domain.Order, stockDeltas map[uuid.UUID]int) error
	DeleteRestoringStock(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, customerID *uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Order, error)
	Count(ctx context.Context) (int, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// applyStockDeltas adjusts product stock levels inside tx. Deltas are applied
// in product-ID order so concurrent transactions touching the same products
// cannot deadlock. A conditional update guards the non-negative invariant: if
// the row would go negative the update matches nothing and the whole
// transaction is rolled back by the caller.
func applyStockDeltas(ctx context.Context, tx *sql.Tx, deltas map[uuid.UUID]int) error {
	ids := make([]uuid.UUID, 0, len(deltas))
	for id, delta := range deltas {
		if delta != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		delta := deltas[id]
		result, err := tx.ExecContext(
			ctx,
			`UPDATE products
			 SET stock_quantity = stock_quantity + $2
			 WHERE id = $1 AND stock_quantity + $2 >= 0`,
			id, delta,
		)
		if err != nil {
			return fmt.Errorf("failed to adjust stock for product %s: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			var available int
			err := tx.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, id).Scan(&available)
			if err != nil {
				if err == sql.ErrNoRows {
					return ErrProductNotFound
				}
				return fmt.Errorf("failed to read stock for product %s: %w", id, err)
			}
			return &InsufficientStockError{ProductID: id, Available: available, Requested: -delta}
		}
	}

	return nil
}

// insertItems persists the order's line items inside tx
func insertItems(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price_at_order)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, item := range order.Items {
		_, err := tx.ExecContext(
			ctx,
			query,
			item.ID,
			order.ID,
			item.ProductID,
			item.Quantity,
			item.PriceAtOrder,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateLineItem
			}
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

// CreateWithItems inserts the order and its items and applies the stock
// decrements atomically.
func (r *orderRepository) CreateWithItems(ctx context.Context, order *domain.Order, stockDeltas map[uuid.UUID]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, customer_id, order_date, total_amount, amount_paid, status, created_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		order.ID,
		order.CustomerID,
		order.OrderDate,
		order.TotalAmount,
		order.AmountPaid,
		order.Status,
		order.CreatedBy,
		order.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err := insertItems(ctx, tx, order); err != nil {
		return err
	}

	if err := applyStockDeltas(ctx, tx, stockDeltas); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order creation: %w", err)
	}

	return nil
}

// UpdateWithItems rewrites the order row and its item set and applies the
// stock deltas atomically. order_date is never touched: it is immutable after
// creation. Items carry their original price_at_order; the item set is
// replaced wholesale, which also covers deletions.
func (r *orderRepository) UpdateWithItems(ctx context.Context, order *domain.Order, stockDeltas map[uuid.UUID]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE orders
		SET customer_id = $2, total_amount = $3, amount_paid = $4, status = $5, notes = $6
		WHERE id = $1
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		order.ID,
		order.CustomerID,
		order.TotalAmount,
		order.AmountPaid,
		order.Status,
		order.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	if err := insertItems(ctx, tx, order); err != nil {
		return err
	}

	if err := applyStockDeltas(ctx, tx, stockDeltas); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order update: %w", err)
	}

	return nil
}

// DeleteRestoringStock adds each item's quantity back to its product's stock
// and deletes the order. Item rows go with the order via cascade.
func (r *orderRepository) DeleteRestoringStock(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	deltas := map[uuid.UUID]int{}
	for rows.Next() {
		var productID uuid.UUID
		var quantity int
		if err := rows.Scan(&productID, &quantity); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		deltas[productID] += quantity
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating order items: %w", err)
	}
	rows.Close()

	if err := applyStockDeltas(ctx, tx, deltas); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order deletion: %w", err)
	}

	return nil
}

// FindByID retrieves an order together with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, customer_id, order_date, total_amount, amount_paid, status, created_by, notes
		FROM orders
		WHERE id = $1
	`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.OrderDate,
		&order.TotalAmount,
		&order.AmountPaid,
		&order.Status,
		&order.CreatedBy,
		&order.Notes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price_at_order
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.PriceAtOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// List retrieves orders newest first with pagination, optionally restricted
// to a single customer. Items are not loaded.
func (r *orderRepository) List(ctx context.Context, customerID *uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if customerID != nil {
		whereClause = fmt.Sprintf("WHERE customer_id = $%d", argIndex)
		args = append(args, *customerID)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT id, customer_id, order_date, total_amount, amount_paid, status, created_by, notes
		FROM orders
		%s
		ORDER BY order_date DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// ListRecent retrieves the most recent orders for the dashboard
func (r *orderRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_id, order_date, total_amount, amount_paid, status, created_by, notes
		FROM orders
		ORDER BY order_date DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.OrderDate,
			&order.TotalAmount,
			&order.AmountPaid,
			&order.Status,
			&order.CreatedBy,
			&order.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// Count returns the total number of orders
func (r *orderRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}
