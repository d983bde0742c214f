package transport

import (
	"net/http"
	"strconv"

	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest represents the create/update product payload
type ProductRequest struct {
	Name          string          `json:"name" validate:"required"`
	CategoryID    uuid.UUID       `json:"category_id" validate:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
}

// ProductListResponse wraps a product page with its total count
type ProductListResponse struct {
	Products interface{} `json:"products"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
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

func parsePagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// List returns products, filterable by category and searchable by name or
// description via the q parameter
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	if q := r.URL.Query().Get("q"); q != "" {
		products, total, err := h.catalog.SearchProducts(r.Context(), q, page, pageSize)
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
			Products: products, Total: total, Page: page, PageSize: pageSize,
		})
		return
	}

	var categoryID *uuid.UUID
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		categoryID = &id
	}

	sortBy := r.URL.Query().Get("sort_by")
	sortOrder := repository.SortOrder(r.URL.Query().Get("sort_order"))

	products, total, err := h.catalog.ListProducts(r.Context(), categoryID, page, pageSize, sortBy, sortOrder)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products, Total: total, Page: page, PageSize: pageSize,
	})
}

// Get returns one product by ID
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create adds a new product
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), service.ProductInput{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.Int("stock", product.StockQuantity),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update modifies an existing product
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, service.ProductInput{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product. Products still referenced by order items are
// rejected.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
