// Package worker runs the export loop: months touched by consumed events
// and the scheduled previous-month job are handed to the export processor.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// DefaultSchedule runs the monthly job at 06:00 on the first of the month.
const DefaultSchedule = "0 6 1 * *"

const stopTimeout = 30 * time.Second

// EventSource delivers consumed events. *amqp.Client implements it.
type EventSource interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Exporter queues months for export. *services.ExportProcessor implements it.
type Exporter interface {
	Enqueue(month core.Month)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Config struct {
	// Schedule is a standard five-field cron expression.
	Schedule string
	// Now overrides time.Now for the scheduled job.
	Now func() time.Time
}

// ExportWorker ties the event consumer and the cron job to an Exporter.
type ExportWorker struct {
	events   EventSource
	exporter Exporter
	schedule string
	now      func() time.Time
	logger   *log.Logger
}

// New creates a worker. events may be nil, in which case only the
// scheduled job feeds the exporter.
func New(events EventSource, exporter Exporter, cfg Config, logger *log.Logger) *ExportWorker {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		events:   events,
		exporter: exporter,
		schedule: cfg.Schedule,
		now:      cfg.Now,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent queues the month the event touched.
func (w *ExportWorker) HandleEvent(ctx context.Context, evt core.Event) error {
	m, err := core.ParseMonth(evt.Month)
	if err != nil {
		return fmt.Errorf("event %s: %w", evt.ID, err)
	}
	w.exporter.Enqueue(m)
	w.logger.DebugContext(ctx, "Month queued for export",
		log.FieldEventType, evt.Type,
		log.FieldMonth, evt.Month)
	return nil
}

// ExportPreviousMonth queues the month before the current one.
func (w *ExportWorker) ExportPreviousMonth() {
	m := core.CurrentMonth(w.now()).Previous()
	w.exporter.Enqueue(m)
	w.logger.Info("Scheduled export queued", log.FieldMonth, m.String())
}

// Run blocks until ctx is cancelled or the consumer fails. The current
// month is exported once at startup to catch changes missed while the
// worker was down.
func (w *ExportWorker) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.schedule, w.ExportPreviousMonth); err != nil {
		return fmt.Errorf("schedule export job %q: %w", w.schedule, err)
	}

	// The exporter outlives ctx so Stop can flush what is still pending.
	if err := w.exporter.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start exporter: %w", err)
	}
	w.exporter.Enqueue(core.CurrentMonth(w.now()))

	c.Start()
	w.logger.InfoContext(ctx, "Export worker started",
		"schedule", w.schedule,
		"consuming", w.events != nil)

	g, gctx := errgroup.WithContext(ctx)
	if w.events != nil {
		g.Go(func() error {
			err := w.events.Consume(gctx, w.HandleEvent)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		<-c.Stop().Done()

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := w.exporter.Stop(stopCtx); err != nil {
			w.logger.ErrorContext(stopCtx, "Exporter did not stop cleanly", log.FieldError, err)
		}
		return nil
	})

	err := g.Wait()
	w.logger.InfoContext(ctx, "Export worker stopped")
	return err
}
