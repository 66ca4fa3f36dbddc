package http

import (
	"log/slog"
	"net/http"

	"coopmanager/internal/core"
)

type expenseRow struct {
	Date     string
	Category string
	Amount   string
}

func (s *Server) expenseRows() []expenseRow {
	expenses := s.svc.Expenses()
	rows := make([]expenseRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, expenseRow{
			Date:     e.Date,
			Category: string(e.Category),
			Amount:   core.FormatAmount(e.Amount),
		})
	}
	return rows
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data := struct {
			IsAdmin    bool
			Categories []core.ExpenseCategory
			Expenses   []expenseRow
		}{IsAdmin: true, Categories: core.Categories(), Expenses: s.expenseRows()}
		s.render(w, r, "expenses.html", data)
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Невалидна заявка</div>`))
		return
	}

	date := sanitizeInput(r.Form.Get("date"))
	category := core.ExpenseCategory(sanitizeInput(r.Form.Get("category")))
	amountStr := sanitizeInput(r.Form.Get("amount"))

	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Невалидна сума</div>`))
		return
	}

	claims := sessionFromContext(r.Context())
	exp, err := s.svc.AddExpense(r.Context(), claims.Role, date, category, amount)
	if err != nil {
		slog.WarnContext(r.Context(), "Add expense rejected", "error", err, "date", date, "category", category)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Невалидни данни за разхода</div>`))
		return
	}

	slog.InfoContext(r.Context(), "Expense recorded", "id", exp.ID, "category", exp.Category, "amount", exp.Amount)
	w.Header().Set("HX-Trigger", `{"expense:created": {}}`)
	s.render(w, r, "expenses_table.html", struct{ Expenses []expenseRow }{Expenses: s.expenseRows()})
}
