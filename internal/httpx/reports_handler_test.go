package httpx

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/allevapp/allevapp/internal/reports"
	"github.com/allevapp/allevapp/internal/users"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCreateReportDefaults(t *testing.T) {
	e := newEnv()
	rec := e.do(t, http.MethodPost, "/api/reports", token(t, users.RoleTechnician), map[string]any{"farm_id": 2, "title": " Broken gate "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[reports.Report](t, rec)
	require.Equal(t, reports.UrgencyMedium, got.Urgency)
	require.Equal(t, reports.StatusOpen, got.Status)
	require.Equal(t, "Broken gate", got.Title)
	require.Equal(t, "technician@farm.example", got.ReportedBy)

	rec = e.do(t, http.MethodPost, "/api/reports", token(t, users.RoleTechnician), map[string]any{"farm_id": 2, "title": "x", "urgency": "panic"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportListFilter(t *testing.T) {
	e := newEnv()
	tok := token(t, users.RoleTechnician)

	rec := e.do(t, http.MethodGet, "/api/reports?status=open&urgency=critical&farm_id=3&limit=5&offset=10", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, reports.Filter{FarmID: 3, Status: reports.StatusOpen, Urgency: reports.UrgencyCritical, Limit: 5, Offset: 10}, e.reports.filter)

	rec = e.do(t, http.MethodGet, "/api/reports?urgency=whenever", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportStatusTransitions(t *testing.T) {
	e := newEnv()
	tok := token(t, users.RoleTechnician)

	rec := e.do(t, http.MethodPost, "/api/reports/1/status", tok, map[string]any{"status": "resolved"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/reports/1/status", tok, map[string]any{"status": "open"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/reports/2/status", tok, map[string]any{"status": "open"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/reports/1/status", tok, map[string]any{"status": "done"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportReportsWorkbook(t *testing.T) {
	e := newEnv()
	created := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	e.reports.list = []reports.Report{
		{ID: 11, FarmID: 2, Title: "Leaking trough", Urgency: reports.UrgencyHigh, Status: reports.StatusOpen, CreatedAt: created, UpdatedAt: created},
	}

	rec := e.do(t, http.MethodGet, "/api/reports/export.xlsx?limit=1", token(t, users.RoleManager), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Disposition"), "reports.xlsx")
	require.Equal(t, exportLimit, e.reports.filter.Limit)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, reportHeaders, rows[0])
	require.Equal(t, "Leaking trough", rows[1][2])
	require.Equal(t, "2024-06-03", rows[1][6])
}
