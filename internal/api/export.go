package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"
)

// ExportTrades handles GET /trades/export, streaming the full non-deleted
// ledger as CSV.
func (h *Handler) ExportTrades(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.GetTradeExport()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("trades-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"date", "position", "symbol", "action", "strike", "premium", "expiry", "notes"}
	if err := writer.Write(header); err != nil {
		return
	}

	for _, row := range rows {
		expiry := ""
		if row.Expiry != nil {
			expiry = row.Expiry.Format("2006-01-02")
		}
		record := []string{
			row.TradeDate.Format("2006-01-02"),
			row.PositionName,
			row.Symbol,
			row.Action,
			row.Strike,
			row.Premium,
			expiry,
			row.Notes,
		}
		if err := writer.Write(record); err != nil {
			return
		}
	}
}
