package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryElectricity ExpenseCategory = "Електричество"
	CategoryElevator    ExpenseCategory = "Асансьор"
	CategoryCleaning    ExpenseCategory = "Почистване"
	CategoryReserveFund ExpenseCategory = "ФРО"
	CategoryOther       ExpenseCategory = "Други"
)

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// PaymentTimeLayout is the display format payments carry in their Date field.
// The monthly report parses this string positionally, so the layout is part
// of the stored data contract, not just presentation.
const PaymentTimeLayout = "02.01.2006, 15:04:05"

// NoticeDateLayout is the display format for notice and registration dates.
const NoticeDateLayout = "02.01.2006"

type (
	ExpenseCategory string

	UserRole string

	// Apartment is a single unit of the cooperative. Balance is signed:
	// negative means the unit owes money, non-negative means settled or in
	// credit. Balance is mutated only by charge application and payment
	// recording.
	Apartment struct {
		ID           string  `json:"id"`
		Number       string  `json:"number"`
		Owner        string  `json:"owner"`
		Residents    int     `json:"residents"`
		Balance      float64 `json:"balance"`
		Floor        int     `json:"floor"`
		PaysElevator bool    `json:"paysElevator"`
		HasPet       bool    `json:"hasPet"`
	}

	// Settings holds the five monthly rates. A singleton, edited only by an
	// administrator. Values are trusted as entered; zero or negative rates
	// are accepted.
	Settings struct {
		PricePerResident       float64 `json:"pricePerResident"`
		PricePerPet            float64 `json:"pricePerPet"`
		FixedElevatorFee       float64 `json:"fixedElevatorFee"`
		FixedFroFee            float64 `json:"fixedFroFee"`
		CleaningFeePerResident float64 `json:"cleaningFeePerResident"`
	}

	// Expense is an immutable, append-only log entry. Date is a calendar
	// date in ISO form (2006-01-02).
	Expense struct {
		ID       string          `json:"id"`
		Date     string          `json:"date"`
		Category ExpenseCategory `json:"category"`
		Amount   float64         `json:"amount"`
	}

	// Payment records one mark-paid operation. ApartmentNumber and Owner are
	// denormalized snapshots taken at payment time so the history survives
	// later apartment edits. Date uses PaymentTimeLayout.
	Payment struct {
		ID              string  `json:"id"`
		ApartmentID     string  `json:"apartmentId"`
		ApartmentNumber string  `json:"apartmentNumber"`
		Owner           string  `json:"owner"`
		Amount          float64 `json:"amount"`
		Date            string  `json:"date"`
	}

	Notice struct {
		ID   string `json:"id"`
		Text string `json:"text"`
		Date string `json:"date"`
	}

	// User is an account in the cooperative directory. Email is the
	// case-insensitive identity. PasswordHash is a bcrypt hash.
	User struct {
		ID           string   `json:"id"`
		Email        string   `json:"email"`
		PasswordHash string   `json:"passwordHash"`
		Role         UserRole `json:"role"`
		RegisteredAt string   `json:"registeredAt"`
	}
)

var (
	ErrInvalidResidents = errors.New("residents must be at least 1")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidCategory  = errors.New("invalid expense category")
	ErrEmptyOwner       = errors.New("empty owner name")
	ErrEmptyNumber      = errors.New("empty apartment number")
	ErrEmptyEmail       = errors.New("empty email")
	ErrInvalidRole      = errors.New("invalid role")
)

// Categories lists the fixed expense category enumeration in display order.
func Categories() []ExpenseCategory {
	return []ExpenseCategory{
		CategoryElectricity,
		CategoryElevator,
		CategoryCleaning,
		CategoryReserveFund,
		CategoryOther,
	}
}

func (c ExpenseCategory) Valid() bool {
	switch c {
	case CategoryElectricity, CategoryElevator, CategoryCleaning, CategoryReserveFund, CategoryOther:
		return true
	default:
		return false
	}
}

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

func (a Apartment) Validate() error {
	if strings.TrimSpace(a.Number) == "" {
		return ErrEmptyNumber
	}
	if strings.TrimSpace(a.Owner) == "" {
		return ErrEmptyOwner
	}
	if a.Residents < 1 {
		return ErrInvalidResidents
	}
	if a.Floor < 1 {
		return errors.New("floor must be at least 1")
	}
	return nil
}

func (e Expense) Validate() error {
	if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return ErrInvalidDate
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// NormalizeEmail canonicalizes an email for case-insensitive identity
// matching against the user directory.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
