package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"coopmanager/internal/core"
)

// memStore is an in-memory stand-in for the SQLite store.
type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
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

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC)
}

func newTestService(t *testing.T) (*CoopService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := NewCoopService(context.Background(), store, nil, Options{
		AdminEmail:    "admin",
		AdminPassword: "1234",
		Now:           fixedClock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestSeedingOnEmptyStore(t *testing.T) {
	svc, store := newTestService(t)

	apartments := svc.Apartments()
	if len(apartments) != 24 {
		t.Fatalf("expected 24 seeded apartments, got %d", len(apartments))
	}
	for i, apt := range apartments {
		if apt.Balance != -50 {
			t.Fatalf("apartment %d: expected starting debt -50.00, got %.2f", i, apt.Balance)
		}
		if apt.Residents < 1 {
			t.Fatalf("apartment %d: invalid residents %d", i, apt.Residents)
		}
		wantFloor := i/3 + 1
		if apt.Floor != wantFloor {
			t.Fatalf("apartment %d: expected floor %d, got %d", i, wantFloor, apt.Floor)
		}
		if (i <= 2) == apt.PaysElevator {
			t.Fatalf("apartment %d: elevator exemption wrong (paysElevator=%v)", i, apt.PaysElevator)
		}
	}

	if svc.Settings() != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", svc.Settings())
	}

	users := svc.Users()
	if len(users) != 1 || users[0].Role != core.RoleAdmin {
		t.Fatalf("expected one seed admin, got %+v", users)
	}

	// Seeds were persisted immediately.
	for _, key := range []string{"coop_reset_apts", "coop_settings", "coop_users"} {
		if _, ok := store.values[key]; !ok {
			t.Fatalf("seed for %s not persisted", key)
		}
	}
}

func TestReloadKeepsState(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := svc.ApplyMonthlyCharges(ctx, core.RoleAdmin); err != nil {
		t.Fatalf("apply charges: %v", err)
	}
	before := svc.Apartments()

	reloaded, err := NewCoopService(ctx, store, nil, Options{Now: fixedClock})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	after := reloaded.Apartments()

	if len(before) != len(after) {
		t.Fatalf("collection length changed across reload")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("apartment %d changed across reload:\n%+v\n%+v", i, before[i], after[i])
		}
	}
}

func TestApplyMonthlyChargesRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.ApplyMonthlyCharges(context.Background(), core.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	for _, apt := range svc.Apartments() {
		if apt.Balance != -50 {
			t.Fatalf("balance changed despite forbidden call")
		}
	}
}

func TestMarkAsPaidRecordsAndPersists(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	target := svc.Apartments()[0]
	if err := svc.MarkAsPaid(ctx, core.RoleAdmin, target.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	payments := svc.Payments()
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(payments))
	}
	if payments[0].Amount != 50 {
		t.Fatalf("expected amount 50.00, got %.2f", payments[0].Amount)
	}
	if payments[0].Date != "15.03.2024, 14:30:05" {
		t.Fatalf("unexpected payment date %q", payments[0].Date)
	}
	if svc.Apartments()[0].Balance != 0 {
		t.Fatalf("balance not reset")
	}

	if _, ok := store.values["coop_payments"]; !ok {
		t.Fatalf("payments not persisted")
	}
}

func TestMarkAsPaidUnknownIDIsSilent(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.MarkAsPaid(context.Background(), core.RoleAdmin, "no-such-unit"); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if len(svc.Payments()) != 0 {
		t.Fatalf("payment created for unknown apartment")
	}
}

func TestAddExpenseValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	exp, err := svc.AddExpense(ctx, core.RoleAdmin, "2024-03-15", core.CategoryElectricity, 40)
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if exp.ID == "" {
		t.Fatalf("expected generated id")
	}

	if _, err := svc.AddExpense(ctx, core.RoleAdmin, "2024-03-15", core.CategoryOther, 0); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := svc.AddExpense(ctx, core.RoleAdmin, "15.03.2024", core.CategoryOther, 5); err == nil {
		t.Fatalf("expected error for bad date")
	}
	if _, err := svc.AddExpense(ctx, core.RoleUser, "2024-03-15", core.CategoryOther, 5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	expenses := svc.Expenses()
	if len(expenses) != 1 {
		t.Fatalf("expected exactly one stored expense, got %d", len(expenses))
	}
}

func TestAddExpenseNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddExpense(ctx, core.RoleAdmin, "2024-02-01", core.CategoryCleaning, 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := svc.AddExpense(ctx, core.RoleAdmin, "2024-03-01", core.CategoryCleaning, 20)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if svc.Expenses()[0].ID != second.ID {
		t.Fatalf("expected newest expense first")
	}
}

func TestNoticeLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	notice, err := svc.AddNotice(ctx, core.RoleAdmin, "Общо събрание на входа")
	if err != nil {
		t.Fatalf("add notice: %v", err)
	}
	if notice.Date != "15.03.2024" {
		t.Fatalf("unexpected notice date %q", notice.Date)
	}

	if err := svc.DeleteNotice(ctx, core.RoleAdmin, notice.ID); err != nil {
		t.Fatalf("delete notice: %v", err)
	}
	if len(svc.Notices()) != 0 {
		t.Fatalf("notice not removed")
	}

	if err := svc.DeleteNotice(ctx, core.RoleAdmin, "missing"); !errors.Is(err, ErrNoticeNotFound) {
		t.Fatalf("expected ErrNoticeNotFound, got %v", err)
	}
	if _, err := svc.AddNotice(ctx, core.RoleAdmin, ""); !errors.Is(err, ErrEmptyNotice) {
		t.Fatalf("expected ErrEmptyNotice, got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	svc, store := newTestService(t)

	updated := core.Settings{PricePerResident: 12, PricePerPet: 6, FixedElevatorFee: 18, FixedFroFee: 25, CleaningFeePerResident: 7}
	if err := svc.UpdateSettings(context.Background(), core.RoleAdmin, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	if svc.Settings() != updated {
		t.Fatalf("settings not applied")
	}
	if _, ok := store.values["coop_settings"]; !ok {
		t.Fatalf("settings not persisted")
	}
}

func TestRegisterUserAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, core.RoleAdmin, "Maria@Coop.BG", "parola", core.RoleUser)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "parola" || user.PasswordHash == "" {
		t.Fatalf("password not hashed")
	}

	// Duplicate detection is case-insensitive.
	if _, err := svc.RegisterUser(ctx, core.RoleAdmin, "maria@coop.bg", "x", core.RoleUser); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	if _, err := svc.Authenticate("MARIA@coop.bg", "parola"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Authenticate("maria@coop.bg", "wrong"); err == nil {
		t.Fatalf("expected bad password to fail")
	}
	if _, err := svc.Authenticate("nobody", "parola"); err == nil {
		t.Fatalf("expected unknown user to fail")
	}

	// Seed admin can log in with the bootstrap password.
	admin, err := svc.Authenticate("admin", "1234")
	if err != nil {
		t.Fatalf("admin authenticate: %v", err)
	}
	if admin.Role != core.RoleAdmin {
		t.Fatalf("unexpected role %s", admin.Role)
	}
}

func TestAddApartment(t *testing.T) {
	svc, _ := newTestService(t)

	apt, err := svc.AddApartment(context.Background(), core.RoleAdmin, core.Apartment{
		Number: "25", Owner: "Собственик 25", Residents: 2, Floor: 9, PaysElevator: true,
	})
	if err != nil {
		t.Fatalf("add apartment: %v", err)
	}
	if apt.Balance != 0 {
		t.Fatalf("new unit should start settled, got %.2f", apt.Balance)
	}
	if len(svc.Apartments()) != 25 {
		t.Fatalf("apartment not appended")
	}

	if _, err := svc.AddApartment(context.Background(), core.RoleAdmin, core.Apartment{Number: "26", Owner: "x", Residents: 0, Floor: 1}); err == nil {
		t.Fatalf("expected validation error")
	}
}
