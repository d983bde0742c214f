package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyName     = errors.New("name must not be empty")
	ErrInvalidPrice  = errors.New("price must be greater than zero")
	ErrNegativeStock = errors.New("stock quantity cannot be negative")
)

// CategoryInput carries the editable category fields
type CategoryInput struct {
	Name        string
	Description string
}

// ProductInput carries the editable product fields
type ProductInput struct {
	Name          string
	CategoryID    uuid.UUID
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

// CatalogService defines the interface for category and product business logic
type CatalogService interface {
	CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
}

type catalogService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository) CatalogService {
	return &catalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

// CreateCategory creates a category. Names must be non-empty and unique.
func (s *catalogService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrEmptyName
	}

	category := &domain.Category{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// UpdateCategory modifies a category's name and description
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrEmptyName
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = input.Name
	category.Description = input.Description

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// DeleteCategory removes a category unless products still reference it
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}

// GetCategory retrieves a category by ID
func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}

// ListCategories retrieves all categories
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrEmptyName
	}
	if !input.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if input.StockQuantity < 0 {
		return ErrNegativeStock
	}
	return nil
}

// CreateProduct creates a product under an existing category
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          input.Name,
		CategoryID:    input.CategoryID,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct modifies a product. Changing the price does not rewrite the
// captured price on any existing order item.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.CategoryID = input.CategoryID
	product.Description = input.Description
	product.Price = input.Price
	product.StockQuantity = input.StockQuantity
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct removes a product unless order items still reference it
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// GetProduct retrieves a product by ID
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// ListProducts retrieves products with filtering, sorting, and pagination
func (s *catalogService) ListProducts(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return s.productRepo.List(ctx, categoryID, page, pageSize, sortBy, sortOrder)
}

// SearchProducts searches products by name or description
func (s *catalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return s.productRepo.Search(ctx, query, page, pageSize)
}
