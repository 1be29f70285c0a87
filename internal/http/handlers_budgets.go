package http

import (
	"net/http"

	"fintrack/internal/services"
)

// handleListBudgets requires ?month=; its format and range are business
// rules and come back as 400.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	month := newQueryParams(r, errs).RequiredMonth("month")
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	budgets, err := s.app.Budgets.ListByMonth(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(budgets))
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	body := parseBody(w, r, errs)
	in := services.BudgetInput{
		Month:      body.RequiredMonth("month"),
		CategoryID: body.RequiredInt64("category_id"),
	}
	reported := len(errs.Fields)
	in.AmountPlanned = body.RequiredMoney("amount_planned")
	if len(errs.Fields) == reported && !in.AmountPlanned.IsPositive() {
		errs.add("Input should be greater than 0", errGreaterThan, locBody, "amount_planned")
	}
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.app.Budgets.Upsert(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	id := pathID(r, errs)
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.app.Budgets.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
