// Package handler is the HTTP layer: routing, request decoding, error
// mapping, and response encoding. Business logic lives in the domain
// packages; handlers only translate.
package handler

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/evostore/storefront-api/internal/domain/catalog"
	"github.com/evostore/storefront-api/internal/domain/loyalty"
	"github.com/evostore/storefront-api/internal/domain/order"
	"github.com/evostore/storefront-api/internal/domain/sales"
	"github.com/evostore/storefront-api/internal/gateway"
)

// Handler serves the storefront API, delegating business logic to the order
// service and the domain repositories.
type Handler struct {
	orders   *order.Service
	reader   order.Reader
	variants catalog.Repository
	loyalty  loyalty.Repository
	sales    sales.Repository
	gateway  *gateway.Client
	security *Security

	ordersCreated metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	reader order.Reader,
	variants catalog.Repository,
	loyaltyCards loyalty.Repository,
	salesPersons sales.Repository,
	gw *gateway.Client,
	security *Security,
) *Handler {
	ordersCreated, _ := otel.Meter("storefront-api/handler").Int64Counter("orders.created",
		metric.WithDescription("Orders created through the checkout endpoints."))

	return &Handler{
		orders:        orders,
		reader:        reader,
		variants:      variants,
		loyalty:       loyaltyCards,
		sales:         salesPersons,
		gateway:       gw,
		security:      security,
		ordersCreated: ordersCreated,
	}
}

// Routes builds the API route table. Write endpoints require an API key;
// reads are open to any caller carrying a user identity.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	auth := h.security.Require

	mux.Handle("POST /orders/create-order", auth(http.HandlerFunc(h.createOrder)))
	mux.Handle("POST /orders/create-order-offline", auth(http.HandlerFunc(h.createOrderOffline)))
	mux.Handle("PUT /orders/update-order-offline/{orderID}", auth(http.HandlerFunc(h.updateOrderOffline)))
	mux.Handle("PUT /orders/update-order-payments/{orderID}", auth(http.HandlerFunc(h.updateOrderPayments)))
	mux.Handle("POST /orders/settle-refund/{orderID}", auth(http.HandlerFunc(h.settleRefund)))
	mux.Handle("DELETE /orders/delete-order/{orderID}", auth(http.HandlerFunc(h.deleteOrder)))

	mux.HandleFunc("GET /orders/get-order/{orderID}", h.getOrder)
	mux.HandleFunc("GET /orders/get-orders-user", h.getOrdersUser)
	mux.HandleFunc("GET /orders/get-all-orders", h.getAllOrders)
	mux.HandleFunc("GET /orders/filter", h.filterOrders)
	mux.HandleFunc("GET /orders/returns-by-range", h.returnsByRange)
	mux.HandleFunc("GET /orders/export-excel", h.exportExcel)

	mux.HandleFunc("GET /variants/{barcode}", h.getVariant)
	mux.HandleFunc("GET /loyalty/{barcode}", h.getLoyaltyCard)
	mux.HandleFunc("GET /sales-persons", h.listSalesPersons)

	mux.Handle("POST /payments/create-gateway-order", auth(http.HandlerFunc(h.createGatewayOrder)))
	mux.Handle("POST /payments/verify", auth(http.HandlerFunc(h.verifyPayment)))

	return mux
}
