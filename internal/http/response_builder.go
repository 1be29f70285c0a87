// This file builds application/problem+json error bodies and JSON success
// responses.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"

	CodeValidation   = "REQUEST_VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
	CodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	CodeNotReady     = "SERVICE_UNAVAILABLE"
	detailValidation = "Erro de validação"
	detailInternal   = "Erro interno do servidor"
)

// FieldError is one entry of a 422 errors list.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Problem is the error envelope every failing response carries.
type Problem struct {
	Status   int          `json:"status"`
	Title    string       `json:"title"`
	Detail   string       `json:"detail"`
	Code     string       `json:"code,omitempty"`
	Instance string       `json:"instance"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// ProblemBuilder provides a fluent API for building problem responses.
type ProblemBuilder struct {
	problem Problem
	headers map[string]string
}

// NewProblem starts a problem for status with the standard title.
func NewProblem(status int) *ProblemBuilder {
	return &ProblemBuilder{
		problem: Problem{Status: status, Title: http.StatusText(status)},
		headers: make(map[string]string),
	}
}

func (b *ProblemBuilder) Detail(detail string) *ProblemBuilder {
	b.problem.Detail = detail
	return b
}

func (b *ProblemBuilder) Code(code string) *ProblemBuilder {
	b.problem.Code = code
	return b
}

func (b *ProblemBuilder) Errors(errs []FieldError) *ProblemBuilder {
	b.problem.Errors = errs
	return b
}

func (b *ProblemBuilder) Header(name, value string) *ProblemBuilder {
	b.headers[name] = value
	return b
}

// Build returns the problem with instance set to the request path.
func (b *ProblemBuilder) Build(r *http.Request) Problem {
	p := b.problem
	p.Instance = r.URL.Path
	if p.Detail == "" {
		p.Detail = p.Title
	}
	return p
}

// Write sends the problem to w.
func (b *ProblemBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	writeBody(w, r, b.problem.Status, contentTypeProblem, b.Build(r))
}

// domainStatus maps a domain error kind to its HTTP status.
func domainStatus(kind core.ErrorKind) int {
	switch kind {
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// ErrorProblem converts err into the problem the API reports for it.
// Anything that is neither a domain nor a validation error is a 500 that
// hides its cause.
func ErrorProblem(err error) *ProblemBuilder {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return NewProblem(http.StatusUnprocessableEntity).
			Code(CodeValidation).
			Detail(detailValidation).
			Errors(verr.Fields)
	}
	if de, ok := core.AsError(err); ok {
		return NewProblem(domainStatus(de.Kind)).
			Code(de.Code).
			Detail(de.Message)
	}
	return NewProblem(http.StatusInternalServerError).
		Code(CodeInternal).
		Detail(detailInternal)
}

// writeError logs err at a level matching its status and writes its problem.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	b := ErrorProblem(err)
	logger := log.FromContext(r.Context())

	fields := log.NewFields().WithError(err)
	switch status := b.problem.Status; {
	case status >= http.StatusInternalServerError:
		fields.WithErrorType(log.ErrorTypeInternal, b.problem.Code)
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, operation(r), fields)
	case status == http.StatusUnprocessableEntity:
		fields.WithErrorType(log.ErrorTypeValidation, b.problem.Code)
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	default:
		fields.WithErrorType(errorTypeFor(status), b.problem.Code)
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	b.Write(w, r)
}

// operation names the route that failed, e.g. "POST /budgets/{id}".
func operation(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return r.Method + " " + tmpl
		}
	}
	return r.Method + " " + r.URL.Path
}

func errorTypeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return log.ErrorTypeAuth
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	default:
		return log.ErrorTypeValidation
	}
}

// writeJSON sends v with status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	writeBody(w, r, status, contentTypeJSON, v)
}

func writeBody(w http.ResponseWriter, r *http.Request, status int, contentType string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err)
		status, contentType = http.StatusInternalServerError, contentTypeProblem
		body, _ = json.Marshal(Problem{
			Status:   status,
			Title:    http.StatusText(status),
			Detail:   detailInternal,
			Code:     CodeInternal,
			Instance: r.URL.Path,
		})
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeNoContent sends 204.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
