package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/evostore/storefront-api/internal/domain/catalog"
	"github.com/evostore/storefront-api/internal/domain/customer"
	"github.com/evostore/storefront-api/internal/domain/loyalty"
	"github.com/evostore/storefront-api/internal/domain/order"
	"github.com/evostore/storefront-api/internal/domain/sales"
)

// errorBody is the uniform error envelope: {code, message}.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Code: status, Message: message})
}

// respondDomainError maps domain errors onto the HTTP error taxonomy. Typed
// business-conflict errors surface their computed boundary values in the
// message; unexpected errors are logged and returned opaque.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr    *order.InsufficientStockError
		refundErr   *order.RefundExceedsError
		mismatchErr *order.PaymentMismatchError
		legErr      *order.InvalidLegError
	)
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, loyalty.ErrNotFound),
		errors.Is(err, sales.ErrNotFound),
		errors.Is(err, customer.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrInvalidQuantity):
		respondError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrAddressNotOwned),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrSplitBreakdownNeeded),
		errors.Is(err, order.ErrInvalidSalesPersonID),
		errors.Is(err, customer.ErrInvalidPhone),
		errors.Is(err, customer.ErrInvalidName),
		errors.Is(err, loyalty.ErrInvalidBarcode):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &stockErr),
		errors.As(err, &refundErr),
		errors.As(err, &mismatchErr),
		errors.As(err, &legErr):
		respondError(w, http.StatusBadRequest, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses the {orderID} path segment.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// userIDHeader is the authenticated user identity forwarded by the edge
// proxy. Session handling itself lives outside this service.
const userIDHeader = "X-User-ID"

func requestUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(userIDHeader), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
