package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"coopmanager/internal/core"
	"coopmanager/internal/services"
)

type settingsView struct {
	IsAdmin  bool
	Settings core.Settings
	Users    []core.User
	Message  string
	Error    string
}

func (s *Server) settingsView() settingsView {
	return settingsView{IsAdmin: true, Settings: s.svc.Settings(), Users: s.svc.Users()}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "settings.html", s.settingsView())
	case http.MethodPost:
		s.handleUpdateSettings(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleUpdateSettings replaces all five fee rates at once. Each field is
// required; a single bad field rejects the whole submit.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Невалидна заявка</div>`))
		return
	}

	var parseErr error
	rate := func(field string) float64 {
		v, err := parseRate(r.Form.Get(field))
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("field %s: %w", field, err)
		}
		return v
	}

	settings := core.Settings{
		PricePerResident:       rate("pricePerResident"),
		PricePerPet:            rate("pricePerPet"),
		FixedElevatorFee:       rate("fixedElevatorFee"),
		FixedFroFee:            rate("fixedFroFee"),
		CleaningFeePerResident: rate("cleaningFeePerResident"),
	}
	if parseErr != nil {
		slog.WarnContext(r.Context(), "Settings update rejected", "error", parseErr)
		w.WriteHeader(http.StatusUnprocessableEntity)
		view := s.settingsView()
		view.Error = "Невалидна стойност на такса"
		s.render(w, r, "settings.html", view)
		return
	}

	claims := sessionFromContext(r.Context())
	if err := s.svc.UpdateSettings(r.Context(), claims.Role, settings); err != nil {
		slog.ErrorContext(r.Context(), "Settings update error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		view := s.settingsView()
		view.Error = "Грешка при запазване на настройките"
		s.render(w, r, "settings.html", view)
		return
	}

	view := s.settingsView()
	view.Message = "Настройките са запазени"
	s.render(w, r, "settings.html", view)
}

// handleRegisterUser creates an account from the user directory form.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
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

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")
	role := core.UserRole(sanitizeInput(r.Form.Get("role")))

	claims := sessionFromContext(r.Context())
	user, err := s.svc.RegisterUser(r.Context(), claims.Role, email, password, role)
	if err != nil {
		view := s.settingsView()
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			w.WriteHeader(http.StatusConflict)
			view.Error = "Потребител с този имейл вече съществува"
		default:
			slog.WarnContext(r.Context(), "User registration rejected", "error", err, "email", email)
			w.WriteHeader(http.StatusUnprocessableEntity)
			view.Error = "Невалидни данни за потребителя"
		}
		s.render(w, r, "settings.html", view)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "email", user.Email, "role", user.Role)
	view := s.settingsView()
	view.Message = "Потребителят е регистриран"
	s.render(w, r, "settings.html", view)
}

// parseRate accepts a non-negative decimal with dot or comma separator.
// Unlike payment amounts, a zero rate is allowed.
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty rate")
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate: %w", err)
	}
	if v < 0 {
		return 0, errors.New("negative rate")
	}
	return v, nil
}
