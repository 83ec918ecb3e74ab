package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/evostore/storefront-api/internal/domain/order"
)

type orderItemIn struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

type onlineLegIn struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type splitPaymentsIn struct {
	Cash   decimal.Decimal `json:"cash"`
	Online onlineLegIn     `json:"online"`
}

type createOrderIn struct {
	AddressID     int64  `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
}

type createOrderOut struct {
	OrderID int64           `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	var in createOrderIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.orders.PlaceOnline(r.Context(), order.PlaceOnlineRequest{
		UserID:    userID,
		AddressID: in.AddressID,
		Method:    order.PaymentMethod(in.PaymentMethod),
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.ordersCreated.Add(r.Context(), 1, metric.WithAttributes(attribute.String("channel", "online")))
	respondJSON(w, http.StatusCreated, createOrderOut{OrderID: res.OrderID, Amount: res.Amount})
}

type createOfflineIn struct {
	Name           string           `json:"name"`
	Phone          string           `json:"phone"`
	SalesPersonID  *int64           `json:"salesPersonId"`
	LoyaltyBarcode string           `json:"loyaltyBarcode"`
	PaymentMethod  string           `json:"paymentMethod"`
	Items          []orderItemIn    `json:"items"`
	Payments       *splitPaymentsIn `json:"payments"`
}

func (h *Handler) createOrderOffline(w http.ResponseWriter, r *http.Request) {
	var in createOfflineIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := order.PlaceOfflineRequest{
		Name:           in.Name,
		Phone:          in.Phone,
		SalesPersonID:  in.SalesPersonID,
		LoyaltyBarcode: in.LoyaltyBarcode,
		Method:         order.PaymentMethod(in.PaymentMethod),
	}
	for _, it := range in.Items {
		req.Items = append(req.Items, order.BarcodeItem{Barcode: it.Barcode, Quantity: it.Quantity})
	}
	if in.Payments != nil {
		req.Payments = &order.SplitBreakdown{
			Cash: in.Payments.Cash,
			Online: order.OnlineLeg{
				Amount: in.Payments.Online.Amount,
				Method: order.PaymentMethod(in.Payments.Online.Method),
			},
		}
	}

	res, err := h.orders.PlaceOffline(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.ordersCreated.Add(r.Context(), 1, metric.WithAttributes(attribute.String("channel", "offline")))
	respondJSON(w, http.StatusCreated, createOrderOut{OrderID: res.OrderID, Amount: res.Amount})
}

type adjustIn struct {
	Items []struct {
		VariantID int64 `json:"variantId"`
		Quantity  int   `json:"quantity"`
	} `json:"items"`
}

type adjustOut struct {
	OrderID         int64           `json:"orderId"`
	NetAmountChange decimal.Decimal `json:"netAmountChange"`
	BalanceInfo     string          `json:"balanceInfo"`
}

func (h *Handler) updateOrderOffline(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var in adjustIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lines := make([]order.AdjustLine, len(in.Items))
	for i, it := range in.Items {
		lines[i] = order.AdjustLine{VariantID: it.VariantID, Quantity: it.Quantity}
	}

	res, err := h.orders.Adjust(r.Context(), orderID, lines)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, adjustOut{
		OrderID:         res.OrderID,
		NetAmountChange: res.NetAmount,
		BalanceInfo:     res.Balance,
	})
}

type paymentsIn struct {
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	Payments       []struct {
		Type   string          `json:"type"`
		Method string          `json:"method"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"payments"`
}

type paymentsOut struct {
	Paid decimal.Decimal `json:"paid"`
}

func (h *Handler) updateOrderPayments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var in paymentsIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	legs := make([]order.Leg, len(in.Payments))
	for i, p := range in.Payments {
		legs[i] = order.Leg{
			Type:   order.PaymentType(p.Type),
			Method: order.PaymentMethod(p.Method),
			Amount: p.Amount,
		}
	}

	paid, err := h.orders.RecordPayments(r.Context(), orderID, legs, in.ExpectedAmount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, paymentsOut{Paid: paid})
}

type refundIn struct {
	Type   string          `json:"type"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type refundOut struct {
	RefundedNow     decimal.Decimal `json:"refunded_now"`
	RemainingRefund decimal.Decimal `json:"remaining_refund"`
}

func (h *Handler) settleRefund(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var in refundIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.orders.SettleRefund(r.Context(), orderID, order.RefundRequest{
		Type:    order.PaymentType(in.Type),
		Method:  order.PaymentMethod(in.Method),
		Amount:  in.Amount,
		AdminID: AdminID(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, refundOut{
		RefundedNow:     res.RefundedNow,
		RemainingRefund: res.Remaining,
	})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	if err := h.orders.Cancel(r.Context(), orderID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "order cancelled"})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	detail, err := h.reader.Get(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDetailOut(detail))
}

func (h *Handler) getOrdersUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return
	}
	f := order.Filter{
		UserID: &userID,
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}
	h.listOrders(w, r, f)
}

func (h *Handler) getAllOrders(w http.ResponseWriter, r *http.Request) {
	f := order.Filter{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
	h.listOrders(w, r, f)
}

func (h *Handler) filterOrders(w http.ResponseWriter, r *http.Request) {
	f, err := parseOrderFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.listOrders(w, r, f)
}

type listOut struct {
	Orders []orderOut `json:"orders"`
	Total  int64      `json:"total"`
	Page   int        `json:"page"`
	Limit  int        `json:"limit"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, f order.Filter) {
	list, total, err := h.reader.List(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := listOut{
		Orders: make([]orderOut, len(list)),
		Total:  total,
		Page:   f.Page,
		Limit:  f.Limit,
	}
	if out.Page <= 0 {
		out.Page = 1
	}
	for i := range list {
		out.Orders[i] = toOrderOut(&list[i])
	}
	respondJSON(w, http.StatusOK, out)
}

type returnRowOut struct {
	OrderID int64   `json:"orderId"`
	UserID  int64   `json:"userId"`
	Item    itemOut `json:"item"`
}

func (h *Handler) returnsByRange(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, limit := queryInt(r, "page"), queryInt(r, "limit")
	rows, total, err := h.reader.Returns(r.Context(), from, to, page, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := struct {
		Returns []returnRowOut `json:"returns"`
		Total   int64          `json:"total"`
	}{Returns: make([]returnRowOut, len(rows)), Total: total}
	for i, row := range rows {
		out.Returns[i] = returnRowOut{
			OrderID: row.OrderID,
			UserID:  row.UserID,
			Item:    toItemOut(&row.Item),
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// parseOrderFilter reads the /orders/filter query parameters. Dates accept
// both 2006-01-02 and RFC 3339; a date-only "to" is treated as inclusive of
// that whole day.
func parseOrderFilter(r *http.Request) (order.Filter, error) {
	f := order.Filter{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
	q := r.URL.Query()

	if s := q.Get("from"); s != "" {
		t, _, err := parseDate(s)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, dateOnly, err := parseDate(s)
		if err != nil {
			return f, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		f.To = &t
	}
	if s := q.Get("status"); s != "" {
		f.Status = order.Status(s)
	}
	if s := q.Get("minAmount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return f, errInvalidAmountParam
		}
		f.MinAmount = &d
	}
	if s := q.Get("maxAmount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return f, errInvalidAmountParam
		}
		f.MaxAmount = &d
	}
	return f, nil
}

func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	from, _, err = parseDate(q.Get("from"))
	if err != nil {
		return from, to, err
	}
	var dateOnly bool
	to, dateOnly, err = parseDate(q.Get("to"))
	if err != nil {
		return from, to, err
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}
