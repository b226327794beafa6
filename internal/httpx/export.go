package httpx

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/xuri/excelize/v2"
)

const exportLimit = 5000

// buildWorkbook writes one sheet with a bold header row.
func buildWorkbook(sheet string, headers []string, rows [][]any) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDE8D8"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

func writeXLSX(w http.ResponseWriter, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func dateCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func orderRows(list []orders.OrderConfirmation) [][]any {
	rows := make([][]any, 0, len(list))
	for _, o := range list {
		rows = append(rows, []any{
			o.OrderNumber, o.Company, o.SequentialNumber, o.QuoteID, o.TotalAmount,
			o.OrderDate.Format(time.DateOnly), dateCell(o.DeliveryDate), o.Status, o.Notes,
		})
	}
	return rows
}

var orderHeaders = []string{"Order number", "Company", "Sequence", "Quote", "Total", "Order date", "Delivery date", "Status", "Notes"}

func (h *QuotesHandler) exportOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.Store.ListOrders(ctx, orders.OrderFilter{Company: r.URL.Query().Get("company"), Limit: exportLimit})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	buf, err := buildWorkbook("Orders", orderHeaders, orderRows(list))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeXLSX(w, "orders.xlsx", buf)
}

var reportHeaders = []string{"ID", "Farm", "Title", "Urgency", "Status", "Reported by", "Created", "Updated", "Description"}

func reportRows(list []reports.Report) [][]any {
	rows := make([][]any, 0, len(list))
	for _, rep := range list {
		rows = append(rows, []any{
			rep.ID, rep.FarmID, rep.Title, string(rep.Urgency), string(rep.Status), rep.ReportedBy,
			rep.CreatedAt.Format(time.DateOnly), rep.UpdatedAt.Format(time.DateOnly), rep.Description,
		})
	}
	return rows
}

func (h *ReportsHandler) export(w http.ResponseWriter, r *http.Request) {
	f, err := reportFilter(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	f.Limit, f.Offset = exportLimit, 0

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.Store.List(ctx, f)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	buf, err := buildWorkbook("Reports", reportHeaders, reportRows(list))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeXLSX(w, "reports.xlsx", buf)
}
