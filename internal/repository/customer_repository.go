package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stockroom/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrCustomerHasOrders = errors.New("customer has existing orders")
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error)
	Count(ctx context.Context) (int, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create inserts a new customer using parameterized queries
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, name, phone, email, address, location_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.Address,
		customer.LocationNotes,
		customer.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// Update modifies an existing customer's contact details
func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5, location_notes = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.Address,
		customer.LocationNotes,
	)

	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCustomerNotFound
	}

	return nil
}

// Delete removes a customer. Deletion is rejected with ErrCustomerHasOrders
// while any order still references the customer.
func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var hasOrders bool
	err := r.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE customer_id = $1)`,
		id,
	).Scan(&hasOrders)
	if err != nil {
		return fmt.Errorf("failed to check customer orders: %w", err)
	}
	if hasOrders {
		return ErrCustomerHasOrders
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCustomerNotFound
	}

	return nil
}

// FindByID retrieves a customer by ID
func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `
		SELECT id, name, phone, email, address, location_notes, created_at
		FROM customers
		WHERE id = $1
	`

	customer := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
		&customer.Address,
		&customer.LocationNotes,
		&customer.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer by ID: %w", err)
	}

	return customer, nil
}

// List retrieves customers ordered by name with pagination
func (r *customerRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	offset := (page - 1) * pageSize

	query := `
		SELECT id, name, phone, email, address, location_notes, created_at
		FROM customers
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*domain.Customer{}
	for rows.Next() {
		customer := &domain.Customer{}
		err := rows.Scan(
			&customer.ID,
			&customer.Name,
			&customer.Phone,
			&customer.Email,
			&customer.Address,
			&customer.LocationNotes,
			&customer.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, total, nil
}

// Count returns the total number of customers
func (r *customerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}
