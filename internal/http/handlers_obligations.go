package http

import (
	"log/slog"
	"net/http"

	"coopmanager/internal/core"
)

type apartmentRow struct {
	ID         string
	Number     string
	Owner      string
	Residents  int
	Floor      int
	Elevator   bool
	Pet        bool
	Balance    string
	InDebt     bool
	MonthlyFee string
}

func (s *Server) apartmentRows() []apartmentRow {
	apartments := s.svc.Apartments()
	settings := s.svc.Settings()
	rows := make([]apartmentRow, 0, len(apartments))
	for _, a := range apartments {
		rows = append(rows, apartmentRow{
			ID:         a.ID,
			Number:     a.Number,
			Owner:      a.Owner,
			Residents:  a.Residents,
			Floor:      a.Floor,
			Elevator:   a.PaysElevator,
			Pet:        a.HasPet,
			Balance:    core.FormatAmount(a.Balance),
			InDebt:     a.Balance < 0,
			MonthlyFee: core.FormatAmount(core.MonthlyFee(a, settings)),
		})
	}
	return rows
}

func (s *Server) handleObligations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data := struct {
		IsAdmin    bool
		Apartments []apartmentRow
	}{IsAdmin: true, Apartments: s.apartmentRows()}
	s.render(w, r, "obligations.html", data)
}

// handleApplyCharges debits every apartment with its monthly fee and returns
// the refreshed table. Repeated submits charge again.
func (s *Server) handleApplyCharges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims := sessionFromContext(r.Context())
	if err := s.svc.ApplyMonthlyCharges(r.Context(), claims.Role); err != nil {
		slog.ErrorContext(r.Context(), "Apply charges error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Грешка при начисляване на таксите</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"charges:applied": {}}`)
	s.renderObligationsTable(w, r)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
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
	if err := s.svc.MarkAsPaid(r.Context(), claims.Role, id); err != nil {
		slog.ErrorContext(r.Context(), "Mark paid error", "error", err, "apartment_id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Грешка при отбелязване на плащането</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"payment:recorded": {}}`)
	s.renderObligationsTable(w, r)
}

// handleCreateApartment appends a new unit with a settled balance.
func (s *Server) handleCreateApartment(w http.ResponseWriter, r *http.Request) {
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

	apt := core.Apartment{
		Number:       sanitizeInput(r.Form.Get("number")),
		Owner:        sanitizeInput(r.Form.Get("owner")),
		Residents:    parseIntField(r.Form.Get("residents")),
		Floor:        parseIntField(r.Form.Get("floor")),
		PaysElevator: r.Form.Get("elevator") == "on",
		HasPet:       r.Form.Get("pet") == "on",
	}

	claims := sessionFromContext(r.Context())
	if _, err := s.svc.AddApartment(r.Context(), claims.Role, apt); err != nil {
		slog.WarnContext(r.Context(), "Add apartment rejected", "error", err, "number", apt.Number)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Невалидни данни за апартамента</div>`))
		return
	}

	s.renderObligationsTable(w, r)
}

func (s *Server) renderObligationsTable(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Apartments []apartmentRow
	}{Apartments: s.apartmentRows()}
	s.render(w, r, "obligations_table.html", data)
}
