package http

import (
	"log/slog"
	"net/http"
	"time"

	"coopmanager/internal/auth"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "login.html", struct{ Error string }{})
	case http.MethodPost:
		s.handleLoginSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, r, "login.html", struct{ Error string }{Error: "Невалидна заявка"})
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, err := s.svc.Authenticate(email, password)
	if err != nil {
		slog.WarnContext(r.Context(), "Login failed", "email", email)
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, r, "login.html", struct{ Error string }{Error: "Грешен имейл или парола"})
		return
	}

	token, err := s.sessions.Issue(user, time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Session issue error", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	slog.InfoContext(r.Context(), "User logged in", "email", user.Email, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
