package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fintrack-api/internal/application/transaction"
	"github.com/fintrack-api/internal/domain"
	"github.com/fintrack-api/internal/transport/http/middleware"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"Title", "Type", "Amount", "Category", "Date", "Notes"}

// ExportHandler streams the caller's transactions as a CSV or XLSX download.
type ExportHandler struct {
	svc transaction.Service
}

func NewExportHandler(svc transaction.Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv", "xlsx":
	default:
		writeError(w, http.StatusBadRequest, "unknown format, expected csv or xlsx")
		return
	}
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.svc.List(r.Context(), claims.UserID, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if format == "xlsx" {
		h.writeXLSX(w, txs)
		return
	}
	h.writeCSV(w, txs)
}

func (h *ExportHandler) writeCSV(w http.ResponseWriter, txs []domain.Transaction) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		"transactions_"+time.Now().Format("20060102")+".csv"))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	_ = cw.Write(exportHeader)
	for _, tx := range txs {
		_ = cw.Write(exportRow(&tx))
	}
}

func (h *ExportHandler) writeXLSX(w http.ResponseWriter, txs []domain.Transaction) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Transactions"
	f.SetSheetName("Sheet1", sheet)

	for col, name := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for row, tx := range txs {
		for col, v := range exportRow(&tx) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		"transactions_"+time.Now().Format("20060102")+".xlsx"))
	_ = f.Write(w)
}

func exportRow(tx *domain.Transaction) []string {
	return []string{
		tx.Title,
		tx.Type,
		strconv.FormatFloat(tx.Amount, 'f', 2, 64),
		tx.Category,
		tx.Date.Format("2006-01-02"),
		tx.Notes,
	}
}
