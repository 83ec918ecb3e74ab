package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportExcel streams the filtered order list as an .xlsx workbook. The same
// query parameters as /orders/filter apply; pagination is handled internally
// so the export covers every match.
func (h *Handler) exportExcel(w http.ResponseWriter, r *http.Request) {
	f, err := parseOrderFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	sw, err := wb.NewStreamWriter("Sheet1")
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	header := []any{
		"Order ID", "User ID", "Payment Method", "Payment Status", "Order Status",
		"Amount", "Tax", "Promo Discount %", "Created At",
	}
	if err := sw.SetRow("A1", header); err != nil {
		respondDomainError(w, r, err)
		return
	}

	row := 2
	f.Page, f.Limit = 1, 100
	for {
		list, total, err := h.reader.List(r.Context(), f)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		for i := range list {
			o := &list[i]
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				respondDomainError(w, r, err)
				return
			}
			vals := []any{
				o.ID, o.UserID, string(o.PaymentMethod), string(o.PaymentStatus),
				string(o.Status),
				o.Amount.InexactFloat64(), o.Tax.InexactFloat64(),
				o.PromoDiscount.InexactFloat64(),
				o.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			if err := sw.SetRow(cell, vals); err != nil {
				respondDomainError(w, r, err)
				return
			}
			row++
		}
		if int64(row-2) >= total || len(list) == 0 {
			break
		}
		f.Page++
	}

	if err := sw.Flush(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="orders.xlsx"`)
	if err := wb.Write(w); err != nil {
		// Headers are already gone; all we can do is log.
		zctx.From(r.Context()).Error("write workbook", zap.Error(err))
	}
}
