// Package services owns the application state: one controller loads the six
// collections from the store, serializes every mutation, and writes the
// touched collection back after each change. Domain logic stays in core; this
// layer only orchestrates state, persistence and the archive queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"coopmanager/internal/amqp"
	"coopmanager/internal/auth"
	"coopmanager/internal/core"
	"coopmanager/internal/storage"
)

var (
	ErrForbidden      = errors.New("operation requires administrator role")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNoticeNotFound = errors.New("notice not found")
	ErrEmptyNotice    = errors.New("empty notice text")
	ErrEmptyPassword  = errors.New("empty password")
)

// Options configures initial seeding and the clock.
type Options struct {
	// AdminEmail and AdminPassword bootstrap the seed administrator when the
	// user directory key is absent.
	AdminEmail    string
	AdminPassword string

	// Now is the clock used for payment timestamps and registration dates.
	// Defaults to time.Now.
	Now func() time.Time
}

// CoopService is the single owner of the in-memory collections. All reads
// return copies; all writes go through the mutex and end with a store write
// for the mutated key. Writes are per-key and not transactional across keys.
type CoopService struct {
	mu    sync.Mutex
	store storage.Store
	queue *amqp.Client // optional archive mirror
	now   func() time.Time

	apartments []core.Apartment
	settings   core.Settings
	expenses   []core.Expense
	payments   []core.Payment
	notices    []core.Notice
	users      []core.User
}

// NewCoopService loads every collection from the store, seeding documented
// defaults for keys that have never been written.
func NewCoopService(ctx context.Context, store storage.Store, queue *amqp.Client, opts Options) (*CoopService, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AdminEmail == "" {
		opts.AdminEmail = "admin"
	}

	s := &CoopService{
		store: store,
		queue: queue,
		now:   opts.Now,
	}

	if err := s.load(ctx, opts); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CoopService) load(ctx context.Context, opts Options) error {
	found, err := storage.LoadJSON(ctx, s.store, storage.KeyApartments, &s.apartments)
	if err != nil {
		return fmt.Errorf("load apartments: %w", err)
	}
	if !found {
		s.apartments = SeedApartments()
		if err := storage.SaveJSON(ctx, s.store, storage.KeyApartments, s.apartments); err != nil {
			return fmt.Errorf("seed apartments: %w", err)
		}
		slog.InfoContext(ctx, "Seeded apartment collection", "count", len(s.apartments))
	}

	found, err = storage.LoadJSON(ctx, s.store, storage.KeySettings, &s.settings)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !found {
		s.settings = DefaultSettings()
		if err := storage.SaveJSON(ctx, s.store, storage.KeySettings, s.settings); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}

	if _, err := storage.LoadJSON(ctx, s.store, storage.KeyExpenses, &s.expenses); err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	if _, err := storage.LoadJSON(ctx, s.store, storage.KeyPayments, &s.payments); err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	if _, err := storage.LoadJSON(ctx, s.store, storage.KeyNotices, &s.notices); err != nil {
		return fmt.Errorf("load notices: %w", err)
	}

	found, err = storage.LoadJSON(ctx, s.store, storage.KeyUsers, &s.users)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if !found {
		admin, err := seedAdmin(opts.AdminEmail, opts.AdminPassword, s.now())
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		s.users = []core.User{admin}
		if err := storage.SaveJSON(ctx, s.store, storage.KeyUsers, s.users); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		slog.InfoContext(ctx, "Seeded administrator account", "email", admin.Email)
	}

	return nil
}

// --- snapshot reads ---

func (s *CoopService) Apartments() []core.Apartment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Apartment, len(s.apartments))
	copy(out, s.apartments)
	return out
}

func (s *CoopService) Settings() core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *CoopService) Expenses() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

func (s *CoopService) Payments() []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Payment, len(s.payments))
	copy(out, s.payments)
	return out
}

func (s *CoopService) Notices() []core.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

func (s *CoopService) Users() []core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, len(s.users))
	copy(out, s.users)
	return out
}

// --- derived aggregates ---

func (s *CoopService) Debtors() []core.Apartment {
	return core.Debtors(s.Apartments())
}

func (s *CoopService) TotalDebt() float64 {
	return core.TotalDebt(s.Apartments())
}

func (s *CoopService) TotalReserveFund() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.TotalReserveFund(s.payments, s.settings)
}

func (s *CoopService) MonthlyReport() []core.MonthlyReportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.MonthlyReport(s.payments, s.expenses)
}

// --- mutators ---

// ApplyMonthlyCharges debits every apartment by its monthly fee. One call is
// one billing cycle; repeated calls charge repeatedly.
func (s *CoopService) ApplyMonthlyCharges(ctx context.Context, actor core.UserRole) error {
	if actor != core.RoleAdmin {
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apartments = core.ApplyMonthlyCharges(s.apartments, s.settings)
	if err := storage.SaveJSON(ctx, s.store, storage.KeyApartments, s.apartments); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Applied monthly charges", "apartments", len(s.apartments))
	return nil
}

// MarkAsPaid settles one apartment and records the payment. An unknown id is
// a silent no-op. On success the payment is also queued for the external
// archive when the queue is configured; a publish failure does not fail the
// operation, the ledger stays authoritative.
func (s *CoopService) MarkAsPaid(ctx context.Context, actor core.UserRole, apartmentID string) error {
	if actor != core.RoleAdmin {
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	apartments, payments, ok := core.MarkAsPaid(apartmentID, s.apartments, s.payments, s.now())
	if !ok {
		slog.WarnContext(ctx, "Mark-paid on unknown apartment ignored", "apartment_id", apartmentID)
		return nil
	}
	s.apartments = apartments
	s.payments = payments

	if err := storage.SaveJSON(ctx, s.store, storage.KeyApartments, s.apartments); err != nil {
		return err
	}
	if err := storage.SaveJSON(ctx, s.store, storage.KeyPayments, s.payments); err != nil {
		return err
	}

	payment := s.payments[0]
	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", payment.ID,
		"apartment", payment.ApartmentNumber,
		"amount", payment.Amount)

	if s.queue != nil {
		if err := s.queue.PublishPaymentArchive(ctx, payment.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish archive message",
				"payment_id", payment.ID, "error", err)
		}
	}

	return nil
}

// AddExpense appends a validated expense to the log, newest first.
func (s *CoopService) AddExpense(ctx context.Context, actor core.UserRole, date string, category core.ExpenseCategory, amount float64) (core.Expense, error) {
	if actor != core.RoleAdmin {
		return core.Expense{}, ErrForbidden
	}

	expense := core.Expense{
		ID:       uuid.NewString(),
		Date:     date,
		Category: category,
		Amount:   amount,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses = append([]core.Expense{expense}, s.expenses...)
	if err := storage.SaveJSON(ctx, s.store, storage.KeyExpenses, s.expenses); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", expense.ID,
		"category", expense.Category,
		"amount", expense.Amount)
	return expense, nil
}

// AddNotice stores a notice text, newest first.
func (s *CoopService) AddNotice(ctx context.Context, actor core.UserRole, text string) (core.Notice, error) {
	if actor != core.RoleAdmin {
		return core.Notice{}, ErrForbidden
	}
	if text == "" {
		return core.Notice{}, ErrEmptyNotice
	}

	notice := core.Notice{
		ID:   uuid.NewString(),
		Text: text,
		Date: s.now().Format(core.NoticeDateLayout),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notices = append([]core.Notice{notice}, s.notices...)
	if err := storage.SaveJSON(ctx, s.store, storage.KeyNotices, s.notices); err != nil {
		return core.Notice{}, err
	}
	return notice, nil
}

func (s *CoopService) DeleteNotice(ctx context.Context, actor core.UserRole, id string) error {
	if actor != core.RoleAdmin {
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, n := range s.notices {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNoticeNotFound
	}

	s.notices = append(s.notices[:idx], s.notices[idx+1:]...)
	return storage.SaveJSON(ctx, s.store, storage.KeyNotices, s.notices)
}

// UpdateSettings replaces the rate singleton. Values are trusted as entered.
func (s *CoopService) UpdateSettings(ctx context.Context, actor core.UserRole, settings core.Settings) error {
	if actor != core.RoleAdmin {
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	if err := storage.SaveJSON(ctx, s.store, storage.KeySettings, s.settings); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Settings updated",
		"price_per_resident", settings.PricePerResident,
		"fro_fee", settings.FixedFroFee)
	return nil
}

// AddApartment registers a new unit with a zero starting balance.
func (s *CoopService) AddApartment(ctx context.Context, actor core.UserRole, apt core.Apartment) (core.Apartment, error) {
	if actor != core.RoleAdmin {
		return core.Apartment{}, ErrForbidden
	}

	apt.ID = uuid.NewString()
	apt.Balance = 0
	if err := apt.Validate(); err != nil {
		return core.Apartment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apartments = append(s.apartments, apt)
	if err := storage.SaveJSON(ctx, s.store, storage.KeyApartments, s.apartments); err != nil {
		return core.Apartment{}, err
	}
	return apt, nil
}

// RegisterUser adds an account to the directory. Email identity is
// case-insensitive; duplicates are rejected.
func (s *CoopService) RegisterUser(ctx context.Context, actor core.UserRole, email, password string, role core.UserRole) (core.User, error) {
	if actor != core.RoleAdmin {
		return core.User{}, ErrForbidden
	}
	if password == "" {
		return core.User{}, ErrEmptyPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		RegisteredAt: s.now().Format(core.NoticeDateLayout),
	}
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := core.NormalizeEmail(email)
	for _, u := range s.users {
		if core.NormalizeEmail(u.Email) == normalized {
			return core.User{}, ErrDuplicateEmail
		}
	}

	s.users = append(s.users, user)
	if err := storage.SaveJSON(ctx, s.store, storage.KeyUsers, s.users); err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User registered", "email", user.Email, "role", user.Role)
	return user, nil
}

// Authenticate resolves the account by case-insensitive email and checks the
// password against its hash.
func (s *CoopService) Authenticate(email, password string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := core.NormalizeEmail(email)
	for _, u := range s.users {
		if core.NormalizeEmail(u.Email) == normalized {
			if auth.CheckPassword(password, u.PasswordHash) {
				return u, nil
			}
			break
		}
	}
	return core.User{}, auth.ErrInvalidCredentials
}

// Close releases the store and queue connections.
func (s *CoopService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("queue: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close coop service: %v", errs)
	}
	return nil
}
