package http

import (
	"log/slog"
	"net/http"

	"coopmanager/internal/core"
)

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	report := s.svc.MonthlyReport()
	type reportRow struct {
		Period   string
		Income   string
		Expenses string
	}
	rows := make([]reportRow, 0, len(report))
	for _, row := range report {
		rows = append(rows, reportRow{
			Period:   row.Period,
			Income:   core.FormatAmount(row.Income),
			Expenses: core.FormatAmount(row.Expenses),
		})
	}

	claims := sessionFromContext(r.Context())
	payments := s.svc.Payments()
	data := struct {
		IsAdmin  bool
		Report   []reportRow
		Payments []core.Payment
		HasChart bool
	}{IsAdmin: claims.Role == core.RoleAdmin, Report: rows, Payments: payments, HasChart: len(report) > 0}

	s.render(w, r, "archive.html", data)
}

// handleArchiveChart renders the monthly report as a PNG bar chart.
func (s *Server) handleArchiveChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	png, err := s.charts.MonthlyReportPNG(s.svc.MonthlyReport())
	if err != nil {
		slog.ErrorContext(r.Context(), "Chart render error", "error", err)
		http.Error(w, "chart render failed", http.StatusInternalServerError)
		return
	}
	if png == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
