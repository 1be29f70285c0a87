package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage/storagetest"
)

const testAPIKey = "test-key"

type testAPI struct {
	t   *testing.T
	srv *Server
	app *services.App
}

func newTestAPI(t *testing.T, cfg ServerConfig) *testAPI {
	t.Helper()
	store := storagetest.New(t)
	app := services.NewApp(store)
	if cfg.APIKey == "" {
		cfg.APIKey = testAPIKey
	}
	srv := NewServer(cfg, app, store, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testAPI{t: t, srv: srv, app: app}
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAPIKey, testAPIKey)
	w := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(w, req)
	return w
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireProblem(t *testing.T, w *httptest.ResponseRecorder, status int, code string) Problem {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, contentTypeProblem, w.Header().Get("Content-Type"))
	p := decodeInto[Problem](t, w)
	assert.Equal(t, code, p.Code)
	return p
}

func TestHealthAndReadiness(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	for _, path := range []string{"/health", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		api.srv.Handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadinessReportsUnavailableStore(t *testing.T) {
	srv := NewServer(ServerConfig{}, services.NewApp(storagetest.New(t)), failingPinger{}, nil)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	requireProblem(t, w, http.StatusServiceUnavailable, CodeNotReady)
}

func TestAPIKey(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		if key != "" {
			req.Header.Set(HeaderAPIKey, key)
		}
		w := httptest.NewRecorder()
		api.srv.Handler.ServeHTTP(w, req)

		p := requireProblem(t, w, http.StatusUnauthorized, "API_KEY_INVALID")
		assert.Equal(t, "API key inválida", p.Detail)
		assert.Equal(t, "/accounts", p.Instance)
	}

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/accounts", "").Code)
}

func TestAPIKeyDisabled(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: false})

	w := httptest.NewRecorder()
	api.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutingProblems(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	requireProblem(t, api.do(http.MethodGet, "/nope", ""), http.StatusNotFound, "")
	requireProblem(t, api.do(http.MethodPatch, "/accounts", ""), http.StatusMethodNotAllowed, "")
}

func TestAccountsEndpoints(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	w := api.do(http.MethodPost, "/accounts", `{"name":"Banco"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	acc := decodeInto[core.Account](t, w)
	assert.Equal(t, "BANK", acc.Type)
	assert.True(t, acc.Active)

	requireProblem(t, api.do(http.MethodPost, "/accounts", `{"name":"Banco","type":"BANK"}`), http.StatusConflict, "ACCOUNT_ALREADY_EXISTS")

	w = api.do(http.MethodPut, "/accounts/"+itoa(acc.ID), `{"name":"Banco Inter","active":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeInto[core.Account](t, w)
	assert.Equal(t, "Banco Inter", updated.Name)
	assert.False(t, updated.Active)

	listed := decodeInto[[]core.Account](t, api.do(http.MethodGet, "/accounts", ""))
	assert.Empty(t, listed)
	listed = decodeInto[[]core.Account](t, api.do(http.MethodGet, "/accounts?include_inactive=true", ""))
	assert.Len(t, listed, 1)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/accounts/"+itoa(acc.ID), "").Code)
	requireProblem(t, api.do(http.MethodDelete, "/accounts/999", ""), http.StatusNotFound, "ACCOUNT_NOT_FOUND")
	requireProblem(t, api.do(http.MethodDelete, "/accounts/abc", ""), http.StatusUnprocessableEntity, CodeValidation)
}

func TestCategoriesEndpoints(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	w := api.do(http.MethodPost, "/categories", `{"name":"Mercado","kind":"EXPENSE","group":"ESSENTIAL"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cat := decodeInto[core.Category](t, w)

	p := requireProblem(t, api.do(http.MethodPost, "/categories", `{"kind":"GIFT"}`), http.StatusUnprocessableEntity, CodeValidation)
	assert.Equal(t, "Erro de validação", p.Detail)
	require.Len(t, p.Errors, 3)
	assert.Equal(t, []string{"body", "name"}, p.Errors[0].Loc)
	assert.Equal(t, errEnum, p.Errors[1].Type)
	assert.Equal(t, errMissing, p.Errors[2].Type)

	w = api.do(http.MethodPut, "/categories/"+itoa(cat.ID), `{"group":"LIFESTYLE"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, core.GroupLifestyle, decodeInto[core.Category](t, w).Group)

	requireProblem(t, api.do(http.MethodPut, "/categories/999", `{"name":"X"}`), http.StatusNotFound, "CATEGORY_NOT_FOUND")
}

func TestMalformedBodies(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	for _, body := range []string{"", "{", "[]"} {
		requireProblem(t, api.do(http.MethodPost, "/accounts", body), http.StatusUnprocessableEntity, CodeValidation)
	}
}

func TestTransactionsEndpoints(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})
	bank := decodeInto[core.Account](t, api.do(http.MethodPost, "/accounts", `{"name":"Banco"}`))
	wallet := decodeInto[core.Account](t, api.do(http.MethodPost, "/accounts", `{"name":"Carteira","type":"CASH"}`))
	food := decodeInto[core.Category](t, api.do(http.MethodPost, "/categories", `{"name":"Mercado","kind":"EXPENSE","group":"ESSENTIAL"}`))

	w := api.do(http.MethodPost, "/transactions",
		`{"date":"2026-01-10","amount":"-450","kind":"EXPENSE","account_id":`+itoa(bank.ID)+`,"category_id":`+itoa(food.ID)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tx := decodeInto[core.Transaction](t, w)
	assert.Equal(t, "-450.00", tx.Amount.String())
	assert.Equal(t, "", tx.Description)
	assert.Contains(t, w.Body.String(), `"amount":"-450.00"`)

	requireProblem(t, api.do(http.MethodPost, "/transactions",
		`{"date":"2026-01-10","amount":"450","kind":"EXPENSE","account_id":`+itoa(bank.ID)+`,"category_id":`+itoa(food.ID)+`}`),
		http.StatusBadRequest, "TX_EXPENSE_REQUIRES_AMOUNT_LT_0")
	requireProblem(t, api.do(http.MethodPost, "/transactions",
		`{"date":"2026-01-10","amount":"10","kind":"TRANSFER","account_id":`+itoa(bank.ID)+`}`),
		http.StatusBadRequest, "TX_USE_TRANSFER_ENDPOINT")

	w = api.do(http.MethodPost, "/transactions/transfer",
		`{"date":"2026-01-08","amount_abs":"400","from_account_id":`+itoa(bank.ID)+`,"to_account_id":`+itoa(wallet.ID)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decodeInto[core.TransferResult](t, w)
	assert.NotEmpty(t, res.PairID)

	requireProblem(t, api.do(http.MethodPost, "/transactions/transfer",
		`{"date":"2026-01-08","amount_abs":"0","from_account_id":`+itoa(bank.ID)+`,"to_account_id":`+itoa(wallet.ID)+`}`),
		http.StatusBadRequest, "TRANSFER_AMOUNT_ABS_GT_0")

	all := decodeInto[[]core.Transaction](t, api.do(http.MethodGet, "/transactions", ""))
	assert.Len(t, all, 3)
	transfers := decodeInto[[]core.Transaction](t, api.do(http.MethodGet, "/transactions?kind=TRANSFER&account_id="+itoa(wallet.ID), ""))
	assert.Len(t, transfers, 1)
	requireProblem(t, api.do(http.MethodGet, "/transactions?from_date=2026-01-01", ""), http.StatusBadRequest, "TX_FROM_TO_BOTH_REQUIRED")
	requireProblem(t, api.do(http.MethodGet, "/transactions?kind=GIFT", ""), http.StatusUnprocessableEntity, CodeValidation)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/transactions/"+itoa(res.OutID), "").Code)
	all = decodeInto[[]core.Transaction](t, api.do(http.MethodGet, "/transactions", ""))
	assert.Len(t, all, 1)
	requireProblem(t, api.do(http.MethodDelete, "/transactions/"+itoa(res.InID), ""), http.StatusNotFound, "TX_NOT_FOUND")
}

func TestBudgetsEndpoints(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})
	food := decodeInto[core.Category](t, api.do(http.MethodPost, "/categories", `{"name":"Mercado","kind":"EXPENSE","group":"ESSENTIAL"}`))
	salary := decodeInto[core.Category](t, api.do(http.MethodPost, "/categories", `{"name":"Salário","kind":"INCOME","group":"ESSENTIAL"}`))

	w := api.do(http.MethodPost, "/budgets", `{"month":"2026-01","category_id":`+itoa(food.ID)+`,"amount_planned":"600"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decodeInto[core.Budget](t, w)

	w = api.do(http.MethodPost, "/budgets", `{"month":"2026-01","category_id":`+itoa(food.ID)+`,"amount_planned":"650.50"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	second := decodeInto[core.Budget](t, w)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "650.50", second.AmountPlanned.String())

	requireProblem(t, api.do(http.MethodPost, "/budgets", `{"month":"2026-01","category_id":`+itoa(salary.ID)+`,"amount_planned":"100"}`),
		http.StatusBadRequest, "BUDGET_ONLY_EXPENSE_MVP")

	p := requireProblem(t, api.do(http.MethodPost, "/budgets", `{"month":"2026-13","category_id":`+itoa(food.ID)+`,"amount_planned":"0"}`),
		http.StatusUnprocessableEntity, CodeValidation)
	require.Len(t, p.Errors, 2)
	assert.Equal(t, errValue, p.Errors[0].Type)
	assert.Equal(t, errGreaterThan, p.Errors[1].Type)

	listed := decodeInto[[]core.Budget](t, api.do(http.MethodGet, "/budgets?month=2026-01", ""))
	assert.Len(t, listed, 1)
	requireProblem(t, api.do(http.MethodGet, "/budgets", ""), http.StatusUnprocessableEntity, CodeValidation)
	requireProblem(t, api.do(http.MethodGet, "/budgets?month=2026-13", ""), http.StatusBadRequest, "MONTH_RANGE")

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/budgets/"+itoa(first.ID), "").Code)
	requireProblem(t, api.do(http.MethodDelete, "/budgets/"+itoa(first.ID), ""), http.StatusNotFound, "BUDGET_NOT_FOUND")
}

func TestMonthlySummaryEndpoint(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})
	_, err := api.app.Seed.Run(context.Background(), services.SeedOptions{
		Month:                  core.Month{Year: 2026, Number: 1},
		WithSampleTransactions: true,
	})
	require.NoError(t, err)

	w := api.do(http.MethodGet, "/reports/monthly-summary?month=2026-01", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"income_total":"5800.00"`)

	summary := decodeInto[core.MonthlySummary](t, w)
	assert.Equal(t, "2026-01", summary.Month)
	assert.Equal(t, "910.00", summary.ExpenseTotal.String())
	assert.Equal(t, "4890.00", summary.Balance.String())
	require.Len(t, summary.ByCategory, 5)

	empty := api.do(http.MethodGet, "/reports/monthly-summary?month=2025-06", "")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), `"by_category":[]`)
	assert.Contains(t, empty.Body.String(), `"balance":"0.00"`)

	requireProblem(t, api.do(http.MethodGet, "/reports/monthly-summary?month=2026-1", ""), http.StatusBadRequest, "MONTH_FORMAT")
	requireProblem(t, api.do(http.MethodGet, "/reports/monthly-summary?month=1899-01", ""), http.StatusBadRequest, "MONTH_YEAR_RANGE")
}

func TestMonthQueryIsNotTrimmed(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	for _, month := range []string{"%202026-01", "2026-01%0A", "%092026-01%20"} {
		t.Run(month, func(t *testing.T) {
			requireProblem(t, api.do(http.MethodGet, "/reports/monthly-summary?month="+month, ""), http.StatusBadRequest, "MONTH_FORMAT")
			requireProblem(t, api.do(http.MethodGet, "/budgets?month="+month, ""), http.StatusBadRequest, "MONTH_FORMAT")
		})
	}
}

func TestAmountsOutOfRangeAreRejected(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})
	bank := decodeInto[core.Account](t, api.do(http.MethodPost, "/accounts", `{"name":"Banco"}`))
	wallet := decodeInto[core.Account](t, api.do(http.MethodPost, "/accounts", `{"name":"Carteira","type":"CASH"}`))
	salary := decodeInto[core.Category](t, api.do(http.MethodPost, "/categories", `{"name":"Salário","kind":"INCOME","group":"ESSENTIAL"}`))
	food := decodeInto[core.Category](t, api.do(http.MethodPost, "/categories", `{"name":"Mercado","kind":"EXPENSE","group":"ESSENTIAL"}`))

	for _, amount := range []string{`"1e5000000"`, `"1e2000"`, `1e300`, `"12345678901"`} {
		t.Run(amount, func(t *testing.T) {
			p := requireProblem(t, api.do(http.MethodPost, "/transactions",
				`{"date":"2026-01-05","amount":`+amount+`,"kind":"INCOME","account_id":`+itoa(bank.ID)+`,"category_id":`+itoa(salary.ID)+`}`),
				http.StatusUnprocessableEntity, CodeValidation)
			require.Len(t, p.Errors, 1)
			assert.Equal(t, errWholeDigits, p.Errors[0].Type)

			p = requireProblem(t, api.do(http.MethodPost, "/transactions/transfer",
				`{"date":"2026-01-05","amount_abs":`+amount+`,"from_account_id":`+itoa(bank.ID)+`,"to_account_id":`+itoa(wallet.ID)+`}`),
				http.StatusUnprocessableEntity, CodeValidation)
			assert.Equal(t, errWholeDigits, p.Errors[0].Type)

			p = requireProblem(t, api.do(http.MethodPost, "/budgets",
				`{"month":"2026-01","category_id":`+itoa(food.ID)+`,"amount_planned":`+amount+`}`),
				http.StatusUnprocessableEntity, CodeValidation)
			require.Len(t, p.Errors, 1)
			assert.Equal(t, errWholeDigits, p.Errors[0].Type)
		})
	}

	w := api.do(http.MethodPost, "/transactions",
		`{"date":"2026-01-05","amount":"9999999999.99","kind":"INCOME","account_id":`+itoa(bank.ID)+`,"category_id":`+itoa(salary.ID)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	all := decodeInto[[]core.Transaction](t, api.do(http.MethodGet, "/transactions", ""))
	assert.Len(t, all, 1)
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true, RateLimitPerMinute: 2})

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/accounts", "").Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/accounts", "").Code)

	w := api.do(http.MethodGet, "/accounts", "")
	requireProblem(t, w, http.StatusTooManyRequests, CodeRateLimited)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	api := newTestAPI(t, ServerConfig{APIKeyEnabled: true})

	w := api.do(http.MethodGet, "/accounts", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
