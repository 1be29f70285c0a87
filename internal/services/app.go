// Package services holds the use-cases. Each operation runs inside one
// unit of work and talks to storage only through the ports.
package services

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// App bundles every use-case behind one value that the HTTP layer, the
// worker and the CLI share.
type App struct {
	Accounts     *AccountService
	Categories   *CategoryService
	Transactions *TransactionService
	Budgets      *BudgetService
	Reports      *ReportService
	Seed         *SeedService
}

// Option customises NewApp.
type Option func(*deps)

// WithPublisher sets where committed changes are announced.
func WithPublisher(p ports.EventPublisher) Option {
	return func(d *deps) { d.events.publisher = p }
}

// WithLogger sets the services logger.
func WithLogger(l *log.Logger) Option {
	return func(d *deps) { d.logger = l }
}

// WithClock overrides time.Now, used for default dates.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// deps is shared by every service of one App.
type deps struct {
	uow    ports.UnitOfWork
	events *eventSink
	logger *log.Logger
	now    func() time.Time
}

// NewApp wires the services around uow.
func NewApp(uow ports.UnitOfWork, opts ...Option) *App {
	d := &deps{
		uow:    uow,
		events: &eventSink{publisher: NoopPublisher{}},
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithComponent(log.ComponentServices)
	d.events.logger = d.logger

	return &App{
		Accounts:     &AccountService{d},
		Categories:   &CategoryService{d},
		Transactions: &TransactionService{d},
		Budgets:      &BudgetService{d},
		Reports:      &ReportService{d},
		Seed:         &SeedService{d},
	}
}

// within runs fn in a unit of work and hands back its result.
func within[T any](ctx context.Context, uow ports.UnitOfWork, fn func(ctx context.Context, repos ports.Repositories) (T, error)) (T, error) {
	var out T
	err := uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		out, err = fn(ctx, repos)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, core.Event) error { return nil }

// eventSink publishes after commit. Failures are logged and swallowed: the
// write already happened and the export can be rebuilt from the ledger.
type eventSink struct {
	publisher ports.EventPublisher
	logger    *log.Logger
}

func (s *eventSink) emit(ctx context.Context, evts ...core.Event) {
	for _, evt := range evts {
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish event",
				log.NewFields().
					WithEvent(string(evt.Type), evt.Month, evt.EntityID).
					WithOperation(log.OpPublish).
					WithError(err).
					ToSlice()...)
			continue
		}
		s.logger.DebugContext(ctx, "Event published",
			log.FieldEventType, string(evt.Type),
			log.FieldMonth, evt.Month,
			log.FieldEntityID, evt.EntityID)
	}
}
