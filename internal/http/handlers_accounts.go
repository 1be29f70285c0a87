package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	includeInactive := newQueryParams(r, errs).Bool("include_inactive", false)
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	accounts, err := s.app.Accounts.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(accounts))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	body := parseBody(w, r, errs)
	name := body.RequiredString("name", maxNameLength)
	accType := core.DefaultAccountType
	if t := body.BoundedString("type", maxAccountTypeLength); t != nil {
		accType = *t
	}
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.app.Accounts.Create(r.Context(), name, accType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, acc)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	id := pathID(r, errs)
	body := parseBody(w, r, errs)
	upd := services.AccountUpdate{
		Name:   body.BoundedString("name", maxNameLength),
		Type:   body.BoundedString("type", maxAccountTypeLength),
		Active: body.Bool("active"),
	}
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.app.Accounts.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, acc)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	id := pathID(r, errs)
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.app.Accounts.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// nonNil makes empty listings encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
