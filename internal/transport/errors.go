package transport

import (
	"errors"
	"net/http"

	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"go.uber.org/zap"
)

// respondServiceError maps service and repository errors onto HTTP responses
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var stockErr *repository.InsufficientStockError
	if errors.As(err, &stockErr) {
		middleware.RespondWithErrorDetails(w, http.StatusUnprocessableEntity, "insufficient stock", map[string]interface{}{
			"product_id": stockErr.ProductID.String(),
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, repository.ErrCategoryAlreadyExists),
		errors.Is(err, repository.ErrDuplicateLineItem),
		errors.Is(err, repository.ErrCategoryHasProducts),
		errors.Is(err, repository.ErrCustomerHasOrders),
		errors.Is(err, repository.ErrProductReferenced):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrNegativeStock),
		errors.Is(err, service.ErrNoItems),
		errors.Is(err, service.ErrDuplicateProduct),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrNegativePayment):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())

	default:
		logger.Error("Unhandled service error", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
