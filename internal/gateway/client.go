// Package gateway is a minimal client for the external payment gateway used
// to collect online payments. Only order creation and callback signature
// verification are needed by the storefront; amounts cross the wire in minor
// currency units.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Order is the gateway's view of a payment order.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// Client talks to the payment gateway's REST API.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	tracer    trace.Tracer
}

// Config holds gateway credentials and endpoint.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
}

// NewClient creates a gateway client. When httpClient is nil,
// http.DefaultClient is used.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		http:      httpClient,
		tracer:    otel.Tracer("storefront-api/gateway"),
	}
}

// CreateOrder registers a payment order with the gateway. amount is in minor
// currency units (paise for INR); receipt ties the gateway order back to ours.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.CreateOrder", trace.WithAttributes(
		attribute.Int64("gateway.amount_minor", amount),
		attribute.String("gateway.currency", currency),
	))
	defer span.End()

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Int64(amount) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(currency) })
		e.Field("receipt", func(e *jx.Encoder) { e.Str(receipt) })
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/orders", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call gateway")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read gateway response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	order, err := decodeOrder(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode gateway response")
	}
	return order, nil
}

func decodeOrder(body []byte) (*Order, error) {
	var o Order
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "amount":
			o.Amount, err = d.Int64()
		case "currency":
			o.Currency, err = d.Str()
		case "receipt":
			o.Receipt, err = d.Str()
		case "status":
			o.Status, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}
	if o.ID == "" {
		return nil, errors.New("missing order id")
	}
	return &o, nil
}

// VerifySignature checks a payment callback's HMAC-SHA256 signature computed
// over "orderID|paymentID" with the key secret. Comparison is constant-time.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
