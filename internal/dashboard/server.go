// Package dashboard serves a read-only HTML view of the finance API.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	appweb "fintrack/web"
)

const (
	monthsInSelector = 12
	reportCacheSize  = 24
	fetchTimeout     = 8 * time.Second
	cleanupInterval  = 5 * time.Minute
)

// API is the part of the finance API the pages read.
type API interface {
	MonthlySummary(ctx context.Context, month core.Month) (core.MonthlySummary, error)
	Transactions(ctx context.Context, month core.Month) ([]core.Transaction, error)
	Budgets(ctx context.Context, month core.Month) ([]core.Budget, error)
	Accounts(ctx context.Context, includeInactive bool) ([]core.Account, error)
	Categories(ctx context.Context, includeInactive bool) ([]core.Category, error)
}

type Config struct {
	Addr     string
	CacheTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	api       API
	templates *template.Template
	logger    *log.Logger
	now       func() time.Time

	reports  *cache.LRUCache[core.MonthlySummary]
	caches   *cache.Manager
	loads    singleflight.Group
	stopOnce sync.Once
}

// NewServer parses the embedded templates and wires the routes.
func NewServer(cfg Config, api API, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentDashboard)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"brl":        FormatBRL,
		"monthLabel": MonthLabel,
		"date":       FormatDate,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		api:       api,
		templates: tmpl,
		logger:    logger,
		now:       cfg.Now,
		reports:   cache.NewLRUCache[core.MonthlySummary](reportCacheSize, cfg.CacheTTL),
		caches:    cache.NewManager(logger),
	}
	s.caches.Register("monthly_reports", s.reports)
	s.caches.StartCleanup(cleanupInterval)

	detector := security.NewDetector(logger)
	r := mux.NewRouter()
	r.Use(
		trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware,
		security.NewHeadersMiddleware(security.DashboardHeadersConfig()).Middleware,
		detector.Middleware,
	)

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	}).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	r.HandleFunc("/budgets", s.handleBudgets).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.handleAccounts).Methods(http.MethodGet)
	r.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)

	s.Handler = r
	return s, nil
}

// Shutdown stops cache cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(s.caches.Stop)
	return s.Server.Shutdown(ctx)
}

// monthlySummary serves reports from the cache; concurrent misses for the
// same month share one API call.
func (s *Server) monthlySummary(ctx context.Context, month core.Month) (core.MonthlySummary, error) {
	key := month.String()
	if summary, ok := s.reports.Get(key); ok {
		return summary, nil
	}

	v, err, _ := s.loads.Do(key, func() (any, error) {
		summary, err := s.api.MonthlySummary(ctx, month)
		if err != nil {
			return core.MonthlySummary{}, err
		}
		s.reports.Set(key, summary)
		return summary, nil
	})
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return v.(core.MonthlySummary), nil
}

type monthOption struct {
	Value    string
	Label    string
	Selected bool
}

// page is the data every template receives.
type page struct {
	Title  string
	Active string
	Error  string
	Month  core.Month
	Months []monthOption
	Data   any
}

// selectedMonth reads ?month=, falling back to the current month when it
// is absent or invalid.
func (s *Server) selectedMonth(r *http.Request) (core.Month, string) {
	current := core.CurrentMonth(s.now())
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return current, ""
	}
	m, err := core.ParseMonth(raw)
	if err != nil {
		msg := err.Error()
		if de, ok := core.AsError(err); ok {
			msg = de.Message
		}
		return current, msg
	}
	return m, ""
}

func (s *Server) monthOptions(selected core.Month) []monthOption {
	months := core.LastMonths(monthsInSelector, core.CurrentMonth(s.now()))
	opts := make([]monthOption, 0, len(months)+1)
	found := false
	for _, m := range months {
		opts = append(opts, monthOption{Value: m.String(), Label: MonthLabel(m), Selected: m == selected})
		found = found || m == selected
	}
	if !found {
		opts = append(opts, monthOption{Value: selected.String(), Label: MonthLabel(selected), Selected: true})
	}
	return opts
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, p); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldError, err)
	}
}

func (s *Server) fail(r *http.Request, p *page, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "API request failed", log.FieldError, err)
	p.Error = UserMessage(err)
}

type dashboardData struct {
	Summary core.MonthlySummary
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, monthErr := s.selectedMonth(r)
	p := page{Title: "Resumo", Active: "dashboard", Error: monthErr, Month: month, Months: s.monthOptions(month)}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	summary, err := s.monthlySummary(ctx, month)
	if err != nil {
		s.fail(r, &p, err)
	} else {
		p.Data = dashboardData{Summary: summary}
	}
	s.render(w, r, "dashboard.html", p)
}

type transactionRow struct {
	core.Transaction
	AccountName  string
	CategoryName string
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	month, monthErr := s.selectedMonth(r)
	p := page{Title: "Transações", Active: "transactions", Error: monthErr, Month: month, Months: s.monthOptions(month)}

	var (
		txs        []core.Transaction
		accounts   []core.Account
		categories []core.Category
	)
	g, ctx := errgroup.WithContext(r.Context())
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	g.Go(func() (err error) { txs, err = s.api.Transactions(ctx, month); return })
	g.Go(func() (err error) { accounts, err = s.api.Accounts(ctx, true); return })
	g.Go(func() (err error) { categories, err = s.api.Categories(ctx, true); return })
	if err := g.Wait(); err != nil {
		s.fail(r, &p, err)
		s.render(w, r, "transactions.html", p)
		return
	}

	accountNames := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	rows := make([]transactionRow, 0, len(txs))
	for _, tx := range txs {
		row := transactionRow{Transaction: tx, AccountName: accountNames[tx.AccountID]}
		if tx.CategoryID != nil {
			row.CategoryName = categoryNames[*tx.CategoryID]
		}
		rows = append(rows, row)
	}
	p.Data = rows
	s.render(w, r, "transactions.html", p)
}

type budgetRow struct {
	core.Budget
	CategoryName string
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	month, monthErr := s.selectedMonth(r)
	p := page{Title: "Orçamentos", Active: "budgets", Error: monthErr, Month: month, Months: s.monthOptions(month)}

	var (
		budgets    []core.Budget
		categories []core.Category
	)
	g, ctx := errgroup.WithContext(r.Context())
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	g.Go(func() (err error) { budgets, err = s.api.Budgets(ctx, month); return })
	g.Go(func() (err error) { categories, err = s.api.Categories(ctx, true); return })
	if err := g.Wait(); err != nil {
		s.fail(r, &p, err)
		s.render(w, r, "budgets.html", p)
		return
	}

	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	rows := make([]budgetRow, 0, len(budgets))
	for _, b := range budgets {
		name, ok := names[b.CategoryID]
		if !ok {
			name = core.UnknownCategoryName
		}
		rows = append(rows, budgetRow{Budget: b, CategoryName: name})
	}
	p.Data = rows
	s.render(w, r, "budgets.html", p)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Contas", Active: "accounts"}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()
	accounts, err := s.api.Accounts(ctx, true)
	if err != nil {
		s.fail(r, &p, err)
	} else {
		p.Data = accounts
	}
	s.render(w, r, "accounts.html", p)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Categorias", Active: "categories"}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()
	categories, err := s.api.Categories(ctx, true)
	if err != nil {
		s.fail(r, &p, err)
	} else {
		p.Data = categories
	}
	s.render(w, r, "categories.html", p)
}
