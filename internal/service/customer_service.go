package service

import (
	"context"
	"strings"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
)

// CustomerInput carries the editable customer fields
type CustomerInput struct {
	Name          string
	Phone         string
	Email         string
	Address       string
	LocationNotes string
}

// CustomerService defines the interface for customer business logic
type CustomerService interface {
	Create(ctx context.Context, input CustomerInput) (*domain.Customer, error)
	Update(ctx context.Context, id uuid.UUID, input CustomerInput) (*domain.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
}

// NewCustomerService creates a new instance of CustomerService
func NewCustomerService(customerRepo repository.CustomerRepository) CustomerService {
	return &customerService{customerRepo: customerRepo}
}

// Create adds a new customer
func (s *customerService) Create(ctx context.Context, input CustomerInput) (*domain.Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrEmptyName
	}

	customer := &domain.Customer{
		ID:            uuid.New(),
		Name:          input.Name,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
		LocationNotes: input.LocationNotes,
		CreatedAt:     time.Now(),
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	return customer, nil
}

// Update modifies a customer's contact details
func (s *customerService) Update(ctx context.Context, id uuid.UUID, input CustomerInput) (*domain.Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrEmptyName
	}

	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Name = input.Name
	customer.Phone = input.Phone
	customer.Email = input.Email
	customer.Address = input.Address
	customer.LocationNotes = input.LocationNotes

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, err
	}

	return customer, nil
}

// Delete removes a customer unless orders still reference them
func (s *customerService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.customerRepo.Delete(ctx, id)
}

// Get retrieves a customer by ID
func (s *customerService) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.customerRepo.FindByID(ctx, id)
}

// List retrieves customers with pagination
func (s *customerService) List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error) {
	return s.customerRepo.List(ctx, page, pageSize)
}
