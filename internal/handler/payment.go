package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type gatewayOrderIn struct {
	OrderID  int64  `json:"orderId"`
	Currency string `json:"currency"`
}

type gatewayOrderOut struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	Status         string `json:"status"`
}

// createGatewayOrder registers an existing storefront order with the payment
// gateway so the client can collect its online payment. The amount is taken
// from the order, converted to minor currency units.
func (h *Handler) createGatewayOrder(w http.ResponseWriter, r *http.Request) {
	var in gatewayOrderIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Currency == "" {
		in.Currency = "INR"
	}

	detail, err := h.reader.Get(r.Context(), in.OrderID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	receipt := fmt.Sprintf("order-%d", in.OrderID)
	amountMinor := detail.Order.Amount.Shift(2).Round(0).IntPart()

	gw, err := h.gateway.CreateOrder(r.Context(), amountMinor, in.Currency, receipt)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, gatewayOrderOut{
		GatewayOrderID: gw.ID,
		Amount:         gw.Amount,
		Currency:       gw.Currency,
		Receipt:        gw.Receipt,
		Status:         gw.Status,
	})
}

type verifyPaymentIn struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	PaymentID      string `json:"paymentId"`
	Signature      string `json:"signature"`
}

// verifyPayment checks a payment callback's signature against the gateway's
// key secret. Callers use it to validate the redirect parameters before
// recording the payment leg.
func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var in verifyPaymentIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.GatewayOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		respondError(w, http.StatusBadRequest, "gatewayOrderId, paymentId and signature are required")
		return
	}

	if !h.gateway.VerifySignature(in.GatewayOrderID, in.PaymentID, in.Signature) {
		respondError(w, http.StatusBadRequest, "signature mismatch")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
