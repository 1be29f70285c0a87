package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// SummarySource computes a month's summary. *ReportService implements it.
type SummarySource interface {
	Summary(ctx context.Context, m core.Month) (core.MonthlySummary, error)
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// FlushInterval is how often pending months are exported (default: 5s)
	FlushInterval time.Duration

	// MaxRetries is the number of attempts per month before it is dropped (default: 3)
	MaxRetries int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
	}
}

// ExportResult describes one month's export.
type ExportResult struct {
	Month   string
	Ref     string
	Changed bool
}

// ExportStats counts the outcome of one flush.
type ExportStats struct {
	Exported  int
	Unchanged int
	Failed    int
	Dropped   int
}

// ExportProcessor collects months touched by events and periodically
// rewrites their summaries in the export store. Bursts of events for the
// same month collapse into one export.
type ExportProcessor struct {
	reports SummarySource
	store   sheets.SummaryStore
	config  ExportProcessorConfig
	logger  *log.Logger

	pmu     sync.Mutex
	pending map[string]int // month -> failed attempts

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportProcessor creates a new export processor
func NewExportProcessor(reports SummarySource, store sheets.SummaryStore, config ExportProcessorConfig, logger *log.Logger) *ExportProcessor {
	def := DefaultExportProcessorConfig()
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportProcessor{
		reports: reports,
		store:   store,
		config:  config,
		logger:  logger.WithComponent(log.ComponentWorker),
		pending: make(map[string]int),
	}
}

// Enqueue marks month for export on the next flush.
func (p *ExportProcessor) Enqueue(month core.Month) {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	if _, ok := p.pending[month.String()]; !ok {
		p.pending[month.String()] = 0
	}
}

// Pending returns the queued months in ascending order.
func (p *ExportProcessor) Pending() []string {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	months := make([]string, 0, len(p.pending))
	for m := range p.pending {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// Start begins the flush loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started",
		"flush_interval", p.config.FlushInterval.String(),
		"max_retries", p.config.MaxRetries)
	return nil
}

// Stop gracefully stops the processor, flushing what is still pending.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			// Last flush on a fresh context so a cancelled parent does not
			// discard months already acknowledged on the queue.
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			p.Flush(flushCtx)
			cancel()
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush exports every pending month once. Failed months are kept for the
// next flush until MaxRetries is reached.
func (p *ExportProcessor) Flush(ctx context.Context) ExportStats {
	p.pmu.Lock()
	batch := p.pending
	p.pending = make(map[string]int)
	p.pmu.Unlock()

	var stats ExportStats
	if len(batch) == 0 {
		return stats
	}

	months := make([]string, 0, len(batch))
	for m := range batch {
		months = append(months, m)
	}
	sort.Strings(months)

	for _, month := range months {
		m, err := core.ParseMonth(month)
		if err != nil {
			stats.Dropped++
			continue
		}

		res, err := p.ExportMonth(ctx, m)
		if err != nil {
			p.handleFailure(ctx, month, batch[month]+1, err, &stats)
			continue
		}
		if res.Changed {
			stats.Exported++
		} else {
			stats.Unchanged++
		}
	}

	p.logger.DebugContext(ctx, "Export flush completed",
		"exported", stats.Exported,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed,
		"dropped", stats.Dropped)
	return stats
}

func (p *ExportProcessor) handleFailure(ctx context.Context, month string, attempts int, err error, stats *ExportStats) {
	if attempts >= p.config.MaxRetries {
		stats.Dropped++
		p.logger.ErrorContext(ctx, "Export failed permanently after max retries",
			log.FieldMonth, month,
			"attempts", attempts,
			log.FieldError, err)
		return
	}

	stats.Failed++
	p.logger.WarnContext(ctx, "Export failed, will retry",
		log.FieldMonth, month,
		"attempt", attempts,
		log.FieldError, err)

	p.pmu.Lock()
	// A fresh Enqueue during the flush resets the counter; keep the higher.
	if prev, ok := p.pending[month]; !ok || prev < attempts {
		p.pending[month] = attempts
	}
	p.pmu.Unlock()
}

// ExportMonth recomputes m and writes it when it differs from the copy in
// the store.
func (p *ExportProcessor) ExportMonth(ctx context.Context, m core.Month) (ExportResult, error) {
	res := ExportResult{Month: m.String()}

	summary, err := p.reports.Summary(ctx, m)
	if err != nil {
		return res, fmt.Errorf("compute summary %s: %w", m, err)
	}

	current, ok, err := p.store.ReadSummary(ctx, res.Month)
	if err != nil {
		// An unreadable copy is overwritten.
		p.logger.WarnContext(ctx, "Failed to read exported summary",
			log.FieldMonth, res.Month,
			log.FieldError, err)
	} else if ok && current.Equal(summary) {
		return res, nil
	}

	ref, err := p.store.WriteSummary(ctx, summary)
	if err != nil {
		return res, fmt.Errorf("write summary %s: %w", m, err)
	}
	res.Ref, res.Changed = ref, true

	p.logger.InfoContext(ctx, "Summary exported",
		log.FieldMonth, res.Month,
		log.FieldSheetsRef, ref,
		log.FieldOperation, log.OpExport)
	return res, nil
}
