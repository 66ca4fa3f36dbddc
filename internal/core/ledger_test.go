package core

import (
	"testing"
	"time"
)

func TestApplyMonthlyCharges(t *testing.T) {
	apartments := []Apartment{
		{ID: "1", Number: "1", Owner: "a", Residents: 2, Balance: -50, HasPet: true, PaysElevator: true},
		{ID: "2", Number: "2", Owner: "b", Residents: 1, Balance: 0},
	}

	got := ApplyMonthlyCharges(apartments, testSettings)

	if got[0].Balance != -120 {
		t.Fatalf("expected balance -120.00, got %.2f", got[0].Balance)
	}
	if got[1].Balance != -(10 + 20 + 5) {
		t.Fatalf("expected balance -35.00, got %.2f", got[1].Balance)
	}
	// Input collection is untouched.
	if apartments[0].Balance != -50 {
		t.Fatalf("input mutated: %.2f", apartments[0].Balance)
	}
}

func TestApplyMonthlyChargesDoubleCharges(t *testing.T) {
	// Charging is not idempotent: a second run in the same period debits the
	// fee again. Pinned here as specified behavior.
	apartments := []Apartment{{ID: "1", Number: "1", Owner: "a", Residents: 2, Balance: -50, HasPet: true, PaysElevator: true}}

	once := ApplyMonthlyCharges(apartments, testSettings)
	twice := ApplyMonthlyCharges(once, testSettings)

	if once[0].Balance != -120 {
		t.Fatalf("first run: expected -120.00, got %.2f", once[0].Balance)
	}
	if twice[0].Balance != -190 {
		t.Fatalf("second run: expected -190.00, got %.2f", twice[0].Balance)
	}
}

func TestMarkAsPaid(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC)
	apartments := []Apartment{
		{ID: "1", Number: "1", Owner: "Собственик 1", Balance: -120},
		{ID: "2", Number: "2", Owner: "Собственик 2", Balance: -10},
	}
	payments := []Payment{{ID: "old", Amount: 7}}

	aps, pays, ok := MarkAsPaid("1", apartments, payments, now)
	if !ok {
		t.Fatalf("expected ok")
	}
	if aps[0].Balance != 0 {
		t.Fatalf("expected zero balance, got %.2f", aps[0].Balance)
	}
	if aps[1].Balance != -10 {
		t.Fatalf("other apartment touched: %.2f", aps[1].Balance)
	}
	if len(pays) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(pays))
	}
	p := pays[0] // prepended, newest first
	if p.Amount != 120 {
		t.Fatalf("expected amount 120.00, got %.2f", p.Amount)
	}
	if p.ApartmentID != "1" || p.ApartmentNumber != "1" || p.Owner != "Собственик 1" {
		t.Fatalf("identity snapshot wrong: %+v", p)
	}
	if p.Date != "15.03.2024, 14:30:05" {
		t.Fatalf("unexpected date format %q", p.Date)
	}
	if pays[1].ID != "old" {
		t.Fatalf("existing log reordered")
	}
}

func TestMarkAsPaidSettledApartment(t *testing.T) {
	// Marking a settled unit still writes a zero-amount payment record.
	apartments := []Apartment{{ID: "1", Number: "1", Owner: "a", Balance: 0}}

	_, pays, ok := MarkAsPaid("1", apartments, nil, time.Now())
	if !ok {
		t.Fatalf("expected ok")
	}
	if len(pays) != 1 || pays[0].Amount != 0 {
		t.Fatalf("expected one zero-amount payment, got %+v", pays)
	}
}

func TestMarkAsPaidCreditReset(t *testing.T) {
	// A unit in credit is reset to zero as well; the credit becomes the
	// recorded payment amount.
	apartments := []Apartment{{ID: "1", Number: "1", Owner: "a", Balance: 20}}

	aps, pays, ok := MarkAsPaid("1", apartments, nil, time.Now())
	if !ok {
		t.Fatalf("expected ok")
	}
	if aps[0].Balance != 0 {
		t.Fatalf("expected zero balance, got %.2f", aps[0].Balance)
	}
	if pays[0].Amount != 20 {
		t.Fatalf("expected amount 20.00, got %.2f", pays[0].Amount)
	}
}

func TestMarkAsPaidUnknownApartment(t *testing.T) {
	apartments := []Apartment{{ID: "1", Number: "1", Owner: "a", Balance: -5}}
	payments := []Payment{{ID: "old"}}

	aps, pays, ok := MarkAsPaid("missing", apartments, payments, time.Now())
	if ok {
		t.Fatalf("expected silent no-op")
	}
	if len(pays) != 1 || aps[0].Balance != -5 {
		t.Fatalf("collections changed on unknown id")
	}
}
