package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type variantOut struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"productName"`
	Category    string          `json:"category"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	Barcode     string          `json:"barcode"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	InStock     bool            `json:"inStock"`
}

// getVariant is the point-of-sale price check: scan a barcode, see what the
// item costs before ringing it up. Cost basis and raw stock counts stay
// internal.
func (h *Handler) getVariant(w http.ResponseWriter, r *http.Request) {
	v, err := h.variants.GetByBarcode(r.Context(), r.PathValue("barcode"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, variantOut{
		ID:          v.ID,
		ProductName: v.ProductName,
		Category:    v.Category,
		Color:       v.Color,
		Size:        v.Size,
		Barcode:     v.Barcode,
		Price:       v.Price,
		Discount:    v.Discount,
		Tax:         v.Tax,
		InStock:     v.Stock > 0,
	})
}

type loyaltyOut struct {
	Barcode  string          `json:"barcode"`
	Discount decimal.Decimal `json:"discount"`
}

func (h *Handler) getLoyaltyCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.loyalty.FindByBarcode(r.Context(), r.PathValue("barcode"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, loyaltyOut{Barcode: card.Barcode, Discount: card.Discount})
}

type salesPersonOut struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) listSalesPersons(w http.ResponseWriter, r *http.Request) {
	people, err := h.sales.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]salesPersonOut, len(people))
	for i, p := range people {
		out[i] = salesPersonOut{ID: p.ID, Name: p.Name}
	}
	respondJSON(w, http.StatusOK, out)
}
