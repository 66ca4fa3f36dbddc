// Package http serves the dashboard UI: server-rendered tabs with htmx
// partial refresh, session-cookie auth, and admin-gated mutations.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"coopmanager/internal/assist"
	"coopmanager/internal/auth"
	"coopmanager/internal/charts"
	"coopmanager/internal/core"
	"coopmanager/internal/services"
	appweb "coopmanager/web"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeySession   ctxKey = "session"
)

type Server struct {
	http.Server
	templates   *template.Template
	svc         *services.CoopService
	sessions    *auth.Sessions
	assist      *assist.Client
	charts      *charts.Generator
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run server.
// The assist client may be nil; AI features then return fixed messages.
func NewServer(addr string, svc *services.CoopService, sessions *auth.Sessions, ai *assist.Client) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:         svc,
		sessions:    sessions,
		assist:      ai,
		charts:      charts.NewGenerator(),
		rateLimiter: newRateLimiter(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("/", s.withSecurityHeaders(s.requireSession(s.handleDashboard)))
	mux.HandleFunc("/analysis", s.withSecurityHeaders(s.requireSession(s.handleAnalysis)))
	mux.HandleFunc("/archive", s.withSecurityHeaders(s.requireSession(s.handleArchive)))
	mux.HandleFunc("/archive/chart.png", s.withSecurityHeaders(s.requireSession(s.handleArchiveChart)))

	mux.HandleFunc("/notices", s.withSecurityHeaders(s.requireAdmin(s.handleCreateNotice)))
	mux.HandleFunc("/notices/delete", s.withSecurityHeaders(s.requireAdmin(s.handleDeleteNotice)))
	mux.HandleFunc("/obligations", s.withSecurityHeaders(s.requireAdmin(s.handleObligations)))
	mux.HandleFunc("/obligations/charge", s.withSecurityHeaders(s.requireAdmin(s.handleApplyCharges)))
	mux.HandleFunc("/obligations/pay", s.withSecurityHeaders(s.requireAdmin(s.handleMarkPaid)))
	mux.HandleFunc("/expenses", s.withSecurityHeaders(s.requireAdmin(s.handleExpenses)))
	mux.HandleFunc("/apartments", s.withSecurityHeaders(s.requireAdmin(s.handleCreateApartment)))
	mux.HandleFunc("/settings", s.withSecurityHeaders(s.requireAdmin(s.handleSettings)))
	mux.HandleFunc("/users", s.withSecurityHeaders(s.requireAdmin(s.handleRegisterUser)))

	return s
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": core.FormatAmount,
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Apply rate limiting to POST requests
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireSession validates the session cookie and stores the claims in the
// request context. Browsers are redirected to the login page.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.SessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		claims, err := s.sessions.Validate(cookie.Value)
		if err != nil {
			slog.WarnContext(r.Context(), "Invalid session token", "error", err)
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, claims)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin builds on requireSession and rejects non-admin users.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		claims := sessionFromContext(r.Context())
		if claims == nil || claims.Role != core.RoleAdmin {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<div class="error">Нямате права за това действие</div>`))
			return
		}
		next(w, r)
	})
}

func sessionFromContext(ctx context.Context) *auth.SessionClaims {
	claims, _ := ctx.Value(ctxKeySession).(*auth.SessionClaims)
	return claims
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// parseIntField parses a form integer, returning 0 for bad input so that
// domain validation produces the user-facing error.
func parseIntField(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
