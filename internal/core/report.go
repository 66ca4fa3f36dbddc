package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MonthlyReportRow is one month bucket of the archive report. Period is the
// MM.YYYY key the bucket was grouped under.
type MonthlyReportRow struct {
	Period   string
	Income   float64
	Expenses float64
}

// Debtors returns the apartments with strictly negative balance, biggest
// debtor first. The sort is stable so units with equal balances keep their
// collection order.
func Debtors(apartments []Apartment) []Apartment {
	var out []Apartment
	for _, apt := range apartments {
		if apt.Balance < 0 {
			out = append(out, apt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Balance < out[j].Balance
	})
	return out
}

// TotalDebt sums the absolute balances of all debtors.
func TotalDebt(apartments []Apartment) float64 {
	var sum float64
	for _, apt := range apartments {
		if apt.Balance < 0 {
			sum -= apt.Balance
		}
	}
	return sum
}

// TotalReserveFund estimates the reserve/renovation (FRO) fund as the number
// of recorded payments times the current FRO rate. This is a deliberate
// simplification inherited from the existing reports: it does not inspect
// what each payment actually contained, and changing it would make old and
// new dashboards disagree.
func TotalReserveFund(payments []Payment, settings Settings) float64 {
	return float64(len(payments)) * settings.FixedFroFee
}

// paymentMonthKey derives the MM.YYYY bucket from a payment's display date
// ("17.03.2024, 14:05:09"): second dot-separated field is the month, third
// field up to the comma is the year. Payments whose date does not have three
// dot-separated parts are skipped.
func paymentMonthKey(date string) (string, bool) {
	parts := strings.Split(date, ".")
	if len(parts) < 3 {
		return "", false
	}
	month := parts[1]
	if len(month) < 2 {
		month = "0" + month
	}
	year, _, _ := strings.Cut(parts[2], ",")
	year = strings.TrimSpace(year)
	return month + "." + year, true
}

// expenseMonthKey derives the MM.YYYY bucket from an expense's calendar date.
func expenseMonthKey(date string) (string, bool) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%02d.%d", int(d.Month()), d.Year()), true
}

// MonthlyReport groups payment amounts (income) and expense amounts into
// month buckets and merges them into one sequence, sorted by the MM.YYYY key.
//
// The sort is a plain string compare, so buckets from different years
// interleave by month rather than chronologically. Existing archives were
// produced with that ordering and this report is kept compatible with them.
func MonthlyReport(payments []Payment, expenses []Expense) []MonthlyReportRow {
	buckets := make(map[string]*MonthlyReportRow)

	bucket := func(key string) *MonthlyReportRow {
		if row, ok := buckets[key]; ok {
			return row
		}
		row := &MonthlyReportRow{Period: key}
		buckets[key] = row
		return row
	}

	for _, p := range payments {
		if key, ok := paymentMonthKey(p.Date); ok {
			bucket(key).Income += p.Amount
		}
	}
	for _, e := range expenses {
		if key, ok := expenseMonthKey(e.Date); ok {
			bucket(key).Expenses += e.Amount
		}
	}

	out := make([]MonthlyReportRow, 0, len(buckets))
	for _, row := range buckets {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period < out[j].Period
	})
	return out
}
