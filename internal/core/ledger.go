package core

import (
	"time"

	"github.com/google/uuid"
)

// ApplyMonthlyCharges debits every apartment by its monthly fee and returns
// the new collection. The transform is applied unconditionally to all units:
// there is no already-charged guard, so running it twice in one period
// double-charges. One invocation is one billing cycle.
func ApplyMonthlyCharges(apartments []Apartment, settings Settings) []Apartment {
	out := make([]Apartment, len(apartments))
	for i, apt := range apartments {
		apt.Balance -= MonthlyFee(apt, settings)
		out[i] = apt
	}
	return out
}

// MarkAsPaid settles the referenced apartment: the payment amount is the
// absolute value of its balance (a settled unit still produces a zero-amount
// record, a unit in credit loses the credit), the balance is set to exactly
// 0, and a payment with a snapshot of the unit's identity is prepended to the
// log so it stays newest-first.
//
// Returns ok=false without touching either collection when the id does not
// resolve; callers treat that as a silent no-op.
func MarkAsPaid(apartmentID string, apartments []Apartment, payments []Payment, now time.Time) (aps []Apartment, pays []Payment, ok bool) {
	idx := -1
	for i, apt := range apartments {
		if apt.ID == apartmentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return apartments, payments, false
	}

	apt := apartments[idx]
	amount := apt.Balance
	if amount < 0 {
		amount = -amount
	}

	payment := Payment{
		ID:              uuid.NewString(),
		ApartmentID:     apt.ID,
		ApartmentNumber: apt.Number,
		Owner:           apt.Owner,
		Amount:          amount,
		Date:            now.Format(PaymentTimeLayout),
	}

	aps = make([]Apartment, len(apartments))
	copy(aps, apartments)
	aps[idx].Balance = 0

	pays = make([]Payment, 0, len(payments)+1)
	pays = append(pays, payment)
	pays = append(pays, payments...)

	return aps, pays, true
}
