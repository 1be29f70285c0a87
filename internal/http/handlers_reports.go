package http

import "net/http"

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	month := newQueryParams(r, errs).RequiredMonth("month")
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.app.Reports.MonthlySummary(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary.ByCategory = nonNil(summary.ByCategory)
	writeJSON(w, r, http.StatusOK, summary)
}
