package service

import (
	"context"

	"stockroom/internal/domain"
	"stockroom/internal/repository"
)

// DashboardSummary holds the headline numbers for the landing view
type DashboardSummary struct {
	TotalProducts  int             `json:"total_products"`
	TotalCustomers int             `json:"total_customers"`
	TotalOrders    int             `json:"total_orders"`
	RecentOrders   []*domain.Order `json:"recent_orders"`
}

// DashboardService defines the interface for dashboard statistics
type DashboardService interface {
	Summary(ctx context.Context) (*DashboardSummary, error)
}

type dashboardService struct {
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	orderRepo    repository.OrderRepository
}

// NewDashboardService creates a new instance of DashboardService
func NewDashboardService(
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	orderRepo repository.OrderRepository,
) DashboardService {
	return &dashboardService{
		productRepo:  productRepo,
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
	}
}

// Summary gathers entity counts and the five most recent orders
func (s *dashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	products, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	customers, err := s.customerRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.orderRepo.ListRecent(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		TotalProducts:  products,
		TotalCustomers: customers,
		TotalOrders:    orders,
		RecentOrders:   recent,
	}, nil
}
