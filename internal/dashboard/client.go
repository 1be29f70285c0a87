package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	headerAPIKey    = "X-API-Key"
	maxResponseSize = 4 << 20
	codeAPIKey      = "API_KEY_INVALID"
)

// APIError is a problem response returned by the finance API.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Detail)
}

// Client reads the finance API on behalf of the dashboard.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a client for the API at baseURL. A nil httpClient gets
// one with a 10s timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) MonthlySummary(ctx context.Context, month core.Month) (core.MonthlySummary, error) {
	var s core.MonthlySummary
	err := c.get(ctx, "/reports/monthly-summary", url.Values{"month": {month.String()}}, &s)
	return s, err
}

// Transactions lists the transactions dated within month.
func (c *Client) Transactions(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	from, to := month.Range()
	var txs []core.Transaction
	err := c.get(ctx, "/transactions", url.Values{
		"from_date": {from.String()},
		"to_date":   {to.String()},
	}, &txs)
	return txs, err
}

func (c *Client) Budgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	var budgets []core.Budget
	err := c.get(ctx, "/budgets", url.Values{"month": {month.String()}}, &budgets)
	return budgets, err
}

func (c *Client) Accounts(ctx context.Context, includeInactive bool) ([]core.Account, error) {
	var accounts []core.Account
	err := c.get(ctx, "/accounts", url.Values{"include_inactive": {strconv.FormatBool(includeInactive)}}, &accounts)
	return accounts, err
}

func (c *Client) Categories(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	var categories []core.Category
	err := c.get(ctx, "/categories", url.Values{"include_inactive": {strconv.FormatBool(includeInactive)}}, &categories)
	return categories, err
}

// Ping checks the API readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/readyz", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// UserMessage turns a client error into the text shown on the page.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Code == codeAPIKey:
		return "API key inválida: confira FIN_API_KEY na configuração do dashboard."
	case errors.As(err, &apiErr):
		return apiErr.Detail
	case errors.Is(err, context.DeadlineExceeded):
		return "A API demorou demais para responder. Tente novamente."
	default:
		return "Não foi possível falar com a API. Verifique FIN_API_BASE_URL."
	}
}
