package transport

import (
	"net/http"

	"stockroom/internal/domain"
	"stockroom/internal/middleware"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderItemRequest is one requested line: product and quantity. Prices are
// captured server-side from the product, never taken from the client.
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// OrderRequest represents the create/update order payload
type OrderRequest struct {
	CustomerID uuid.UUID          `json:"customer_id" validate:"required"`
	AmountPaid decimal.Decimal    `json:"amount_paid"`
	Status     string             `json:"status"`
	Notes      string             `json:"notes"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderListResponse wraps an order page with its total count
type OrderListResponse struct {
	Orders   interface{} `json:"orders"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
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

func (req *OrderRequest) toInput() service.OrderInput {
	input := service.OrderInput{
		CustomerID: req.CustomerID,
		AmountPaid: req.AmountPaid,
		Status:     domain.OrderStatus(req.Status),
		Notes:      req.Notes,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return input
}

// List returns orders newest first with pagination. The customer_id query
// parameter narrows the listing to one customer.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var customerID *uuid.UUID
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid customer id")
			return
		}
		customerID = &id
	}

	orders, total, err := h.orders.List(r.Context(), customerID, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{
		Orders: orders, Total: total, Page: page, PageSize: pageSize,
	})
}

// Get returns one order with its items
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Create places a new order, decrementing stock for each line
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var createdBy *uuid.UUID
	if raw, ok := middleware.GetUserID(r.Context()); ok {
		if id, err := uuid.Parse(raw); err == nil {
			createdBy = &id
		}
	}

	order, err := h.orders.Create(r.Context(), req.toInput(), createdBy)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", order.CustomerID.String()),
		zap.String("total", order.TotalAmount.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// Update edits an order's fields and replaces its line item set
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req OrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.Update(r.Context(), id, req.toInput())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order updated",
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalAmount.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Delete removes an order and restores its items' stock
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order deleted, stock restored", zap.String("order_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
