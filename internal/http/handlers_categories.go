package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	includeInactive := newQueryParams(r, errs).Bool("include_inactive", false)
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	categories, err := s.app.Categories.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(categories))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	body := parseBody(w, r, errs)
	name := body.RequiredString("name", maxNameLength)
	kind := core.CategoryKind(body.requiredEnum("kind", categoryKinds...))
	group := core.CategoryGroup(body.requiredEnum("group", categoryGroups...))
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	cat, err := s.app.Categories.Create(r.Context(), name, kind, group)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, cat)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	id := pathID(r, errs)
	body := parseBody(w, r, errs)
	upd := services.CategoryUpdate{
		Name:   body.BoundedString("name", maxNameLength),
		Active: body.Bool("active"),
	}
	if k := body.enumString("kind", categoryKinds...); k != nil {
		kind := core.CategoryKind(*k)
		upd.Kind = &kind
	}
	if g := body.enumString("group", categoryGroups...); g != nil {
		group := core.CategoryGroup(*g)
		upd.Group = &group
	}
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	cat, err := s.app.Categories.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	errs := &ValidationError{}
	id := pathID(r, errs)
	if err := errs.err(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.app.Categories.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
