package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"coopmanager/internal/assist"
	"coopmanager/internal/core"
	"coopmanager/internal/services"
)

type noticesView struct {
	Notices []core.Notice
	IsAdmin bool
}

func (s *Server) noticesView(isAdmin bool) noticesView {
	return noticesView{Notices: s.svc.Notices(), IsAdmin: isAdmin}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	claims := sessionFromContext(r.Context())
	isAdmin := claims.Role == core.RoleAdmin

	debtors := s.svc.Debtors()
	type debtorRow struct {
		ID     string
		Number string
		Owner  string
		Debt   string
	}
	rows := make([]debtorRow, 0, len(debtors))
	for _, d := range debtors {
		rows = append(rows, debtorRow{
			ID:     d.ID,
			Number: d.Number,
			Owner:  d.Owner,
			Debt:   core.FormatAmount(-d.Balance),
		})
	}

	data := struct {
		Email     string
		IsAdmin   bool
		FroFund   string
		TotalDebt string
		Debtors   []debtorRow
		Notices   noticesView
	}{
		Email:     claims.Email,
		IsAdmin:   isAdmin,
		FroFund:   core.FormatAmount(s.svc.TotalReserveFund()),
		TotalDebt: core.FormatAmount(s.svc.TotalDebt()),
		Debtors:   rows,
		Notices:   s.noticesView(isAdmin),
	}

	s.render(w, r, "dashboard.html", data)
}

// handleAnalysis asks the assistant for a financial summary and returns it as
// an HTML fragment. Failures never touch state; a fixed message is shown.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if s.assist == nil {
		_, _ = w.Write([]byte(`<div class="ai-box">` + template.HTMLEscapeString(assist.MsgAnalysisUnavailable) + `</div>`))
		return
	}

	text, err := s.assist.AnalyzeFinances(r.Context(), s.svc.Expenses(), s.svc.Apartments())
	if err != nil {
		slog.ErrorContext(r.Context(), "Analysis error", "error", err)
		_, _ = w.Write([]byte(`<div class="ai-box error">` + template.HTMLEscapeString(assist.MsgAnalysisError) + `</div>`))
		return
	}

	_, _ = w.Write([]byte(`<div class="ai-box">` + template.HTMLEscapeString(text) + `</div>`))
}

// handleCreateNotice generates a notice from the submitted topic and stores
// it. The refreshed notice list is returned for htmx swap.
func (s *Server) handleCreateNotice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Невалидна заявка</div>`))
		return
	}

	topic := sanitizeInput(r.Form.Get("topic"))
	if topic == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Въведете тема за съобщението</div>`))
		return
	}

	if s.assist == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(assist.MsgNoticeUnavailable) + `</div>`))
		return
	}

	text, err := s.assist.GenerateNotice(r.Context(), topic)
	if err != nil {
		slog.ErrorContext(r.Context(), "Notice generation error", "error", err, "topic", topic)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(assist.MsgNoticeError) + `</div>`))
		return
	}

	claims := sessionFromContext(r.Context())
	if _, err := s.svc.AddNotice(r.Context(), claims.Role, text); err != nil {
		slog.ErrorContext(r.Context(), "Add notice error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Грешка при запазване на съобщението</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"notice:created": {}}`)
	s.render(w, r, "notices.html", s.noticesView(true))
}

func (s *Server) handleDeleteNotice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Невалидна заявка</div>`))
		return
	}

	claims := sessionFromContext(r.Context())
	id := sanitizeInput(r.Form.Get("id"))
	if err := s.svc.DeleteNotice(r.Context(), claims.Role, id); err != nil {
		if errors.Is(err, services.ErrNoticeNotFound) {
			w.WriteHeader(http.StatusNotFound)
		} else {
			slog.ErrorContext(r.Context(), "Delete notice error", "error", err, "id", id)
			w.WriteHeader(http.StatusInternalServerError)
		}
		_, _ = w.Write([]byte(`<div class="error">Съобщението не може да бъде изтрито</div>`))
		return
	}

	s.render(w, r, "notices.html", s.noticesView(true))
}
