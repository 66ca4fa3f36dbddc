package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"coopmanager/internal/auth"
	"coopmanager/internal/core"
	"coopmanager/internal/services"
)

type memStore struct {
	values map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *services.CoopService) {
	t.Helper()
	store := &memStore{values: make(map[string]string)}
	svc, err := services.NewCoopService(context.Background(), store, nil, services.Options{
		AdminEmail:    "admin",
		AdminPassword: "1234",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	sessions := auth.NewSessions("test-secret", time.Hour)
	return NewServer(":0", svc, sessions, nil), svc
}

func sessionCookie(t *testing.T, srv *Server, user core.User) *http.Cookie {
	t.Helper()
	token, err := srv.sessions.Issue(user, time.Now())
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

func adminCookie(t *testing.T, srv *Server) *http.Cookie {
	return sessionCookie(t, srv, core.User{ID: "1", Email: "admin", Role: core.RoleAdmin})
}

func userCookie(t *testing.T, srv *Server) *http.Cookie {
	return sessionCookie(t, srv, core.User{ID: "2", Email: "user@coop.bg", Role: core.RoleUser})
}

func postForm(srv *Server, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(srv, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/", nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}

	// A garbage cookie is cleared and redirected too.
	rr = get(srv, "/", &http.Cookie{Name: auth.SessionCookie, Value: "bogus"})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect for bad token, got %d", rr.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/login", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login page status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "CoopManager") {
		t.Fatalf("login page missing heading")
	}

	rr = postForm(srv, "/login", url.Values{"email": {"admin"}, "password": {"wrong"}}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rr.Code)
	}

	rr = postForm(srv, "/login", url.Values{"email": {"admin"}, "password": {"1234"}}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after login, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatalf("session cookie not set")
	}
	if !session.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}

	rr = get(srv, "/", session)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Табло") {
		t.Fatalf("dashboard body missing heading")
	}
}

func TestDashboardShowsFundAndDebtors(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/", adminCookie(t, srv))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	// 24 seeded apartments owe 50.00 each.
	if !strings.Contains(body, "1200.00 лв.") {
		t.Fatalf("total debt missing from dashboard")
	}
	// No payments yet, reserve fund is zero.
	if !strings.Contains(body, "0.00 лв.") {
		t.Fatalf("reserve fund missing from dashboard")
	}
	if !strings.Contains(body, "Собственик 1") {
		t.Fatalf("debtor table missing owners")
	}
}

func TestAdminRoutesForbiddenForUsers(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := userCookie(t, srv)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/obligations"},
		{http.MethodPost, "/obligations/charge"},
		{http.MethodPost, "/obligations/pay"},
		{http.MethodGet, "/expenses"},
		{http.MethodGet, "/settings"},
		{http.MethodPost, "/users"},
		{http.MethodPost, "/notices"},
	}
	for _, p := range paths {
		var rr *httptest.ResponseRecorder
		if p.method == http.MethodGet {
			rr = get(srv, p.path, cookie)
		} else {
			rr = postForm(srv, p.path, url.Values{}, cookie)
		}
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 for plain user, got %d", p.method, p.path, rr.Code)
		}
	}
}

func TestApplyChargesAndMarkPaid(t *testing.T) {
	srv, svc := newTestServer(t)
	cookie := adminCookie(t, srv)

	rr := postForm(srv, "/obligations/charge", url.Values{}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("charge status=%d", rr.Code)
	}
	// Seeded residents are randomized, so just check the charge landed.
	if svc.Apartments()[0].Balance >= -50 {
		t.Fatalf("balance not charged: %.2f", svc.Apartments()[0].Balance)
	}

	target := svc.Apartments()[0]
	rr = postForm(srv, "/obligations/pay", url.Values{"id": {target.ID}}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("pay status=%d", rr.Code)
	}
	if svc.Apartments()[0].Balance != 0 {
		t.Fatalf("balance not cleared")
	}
	if len(svc.Payments()) != 1 {
		t.Fatalf("payment not recorded")
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	srv, svc := newTestServer(t)
	cookie := adminCookie(t, srv)

	// Invalid amount
	rr := postForm(srv, "/expenses", url.Values{
		"date": {"2024-03-15"}, "category": {"Електричество"}, "amount": {"abc"},
	}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad amount, got %d", rr.Code)
	}

	// Bad date
	rr = postForm(srv, "/expenses", url.Values{
		"date": {"15.03.2024"}, "category": {"Електричество"}, "amount": {"40"},
	}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad date, got %d", rr.Code)
	}
	if len(svc.Expenses()) != 0 {
		t.Fatalf("rejected expense was stored")
	}

	rr = postForm(srv, "/expenses", url.Values{
		"date": {"2024-03-15"}, "category": {"Електричество"}, "amount": {"40,50"},
	}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(svc.Expenses()) != 1 || svc.Expenses()[0].Amount != 40.50 {
		t.Fatalf("expense not stored: %+v", svc.Expenses())
	}
	if rr.Header().Get("HX-Trigger") == "" {
		t.Fatalf("expected HX-Trigger header")
	}
}

func TestUpdateSettings(t *testing.T) {
	srv, svc := newTestServer(t)
	cookie := adminCookie(t, srv)

	rr := postForm(srv, "/settings", url.Values{
		"pricePerResident":       {"12"},
		"pricePerPet":            {"6"},
		"fixedElevatorFee":       {"18"},
		"fixedFroFee":            {"25"},
		"cleaningFeePerResident": {"0"},
	}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("settings status=%d: %s", rr.Code, rr.Body.String())
	}
	got := svc.Settings()
	if got.PricePerResident != 12 || got.FixedFroFee != 25 || got.CleaningFeePerResident != 0 {
		t.Fatalf("settings not updated: %+v", got)
	}

	// Negative rate rejected, nothing changes.
	rr = postForm(srv, "/settings", url.Values{
		"pricePerResident":       {"-1"},
		"pricePerPet":            {"6"},
		"fixedElevatorFee":       {"18"},
		"fixedFroFee":            {"25"},
		"cleaningFeePerResident": {"0"},
	}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for negative rate, got %d", rr.Code)
	}
	if svc.Settings().PricePerResident != 12 {
		t.Fatalf("settings changed after rejected submit")
	}
}

func TestRegisterUserConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := adminCookie(t, srv)

	form := url.Values{"email": {"maria@coop.bg"}, "password": {"parola"}, "role": {"user"}}
	rr := postForm(srv, "/users", form, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("register status=%d", rr.Code)
	}

	rr = postForm(srv, "/users", form, cookie)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rr.Code)
	}
}

func TestNoticeWithoutAssistant(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := adminCookie(t, srv)

	rr := postForm(srv, "/notices", url.Values{"topic": {"Общо събрание"}}, cookie)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without assistant, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Не можах да генерирам съобщение.") {
		t.Fatalf("expected fixed fallback message, got %s", rr.Body.String())
	}

	// Empty topic is a validation error regardless of the assistant.
	rr = postForm(srv, "/notices", url.Values{"topic": {""}}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty topic, got %d", rr.Code)
	}
}

func TestAnalysisWithoutAssistant(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postForm(srv, "/analysis", url.Values{}, adminCookie(t, srv))
	if rr.Code != http.StatusOK {
		t.Fatalf("analysis status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Не можах да генерирам анализ в момента.") {
		t.Fatalf("expected fixed fallback message, got %s", rr.Body.String())
	}
}

func TestArchivePage(t *testing.T) {
	srv, svc := newTestServer(t)
	cookie := adminCookie(t, srv)

	// Record one payment so the report has a bucket.
	if err := svc.MarkAsPaid(context.Background(), core.RoleAdmin, svc.Apartments()[0].ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	rr := get(srv, "/archive", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("archive status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Месечен отчет") {
		t.Fatalf("archive page missing report section")
	}

	rr = get(srv, "/archive/chart.png", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("chart status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("chart content type %q", ct)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/login", nil)
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Fatalf("missing security header %s", h)
		}
	}
}
