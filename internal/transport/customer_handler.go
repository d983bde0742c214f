package transport

import (
	"net/http"

	"stockroom/internal/middleware"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CustomerRequest represents the create/update customer payload
type CustomerRequest struct {
	Name          string `json:"name" validate:"required"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address"`
	LocationNotes string `json:"location_notes"`
}

// CustomerListResponse wraps a customer page with its total count
type CustomerListResponse struct {
	Customers interface{} `json:"customers"`
	Total     int         `json:"total"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
}

// CustomerHandler handles HTTP requests for customer operations
type CustomerHandler struct {
	customers service.CustomerService
	logger    *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, logger: logger}
}

// RegisterRoutes registers all customer routes
func (h *CustomerHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/customers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)

			r.Group(func(r chi.Router) {
				r.Use(adminMiddleware)
				r.Delete("/{id}", h.Delete)
			})
		})
	})
}

// List returns customers with pagination
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	customers, total, err := h.customers.List(r.Context(), page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CustomerListResponse{
		Customers: customers, Total: total, Page: page, PageSize: pageSize,
	})
}

// Get returns one customer by ID
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	customer, err := h.customers.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// Create adds a new customer
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.customers.Create(r.Context(), service.CustomerInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		LocationNotes: req.LocationNotes,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Customer created", zap.String("customer_id", customer.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, customer)
}

// Update modifies an existing customer
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var req CustomerRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.customers.Update(r.Context(), id, service.CustomerInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		LocationNotes: req.LocationNotes,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// Delete removes a customer. Customers with existing orders are rejected.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	if err := h.customers.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Customer deleted", zap.String("customer_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
