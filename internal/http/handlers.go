package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// HeaderAPIKey carries the static API key.
const HeaderAPIKey = "X-API-Key"

const readyTimeout = 2 * time.Second

// Pinger reports whether the store is reachable. *storage.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			NewProblem(http.StatusServiceUnavailable).
				Code(CodeNotReady).
				Detail("Banco de dados indisponível").
				Write(w, r)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// apiKeyMiddleware rejects requests whose X-API-Key does not match key.
// The comparison runs in constant time.
func apiKeyMiddleware(key string) func(http.Handler) http.Handler {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := []byte(r.Header.Get(HeaderAPIKey))
			if len(given) == 0 || subtle.ConstantTimeCompare(given, expected) != 1 {
				writeError(w, r, core.ErrAPIKeyInvalid)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NewProblem(http.StatusNotFound).Write(w, r)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewProblem(http.StatusMethodNotAllowed).Write(w, r)
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	NewProblem(http.StatusTooManyRequests).
		Code(CodeRateLimited).
		Detail("Limite de requisições excedido, tente novamente mais tarde").
		Write(w, r)
}
