// Package sheets defines where monthly summaries are exported to.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter replaces the stored copy of a month's summary.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, s core.MonthlySummary) (ref string, err error)
	}

	// SummaryReader returns the last exported summary of a month. ok is
	// false when the month was never exported.
	SummaryReader interface {
		ReadSummary(ctx context.Context, month string) (s core.MonthlySummary, ok bool, err error)
	}

	SummaryStore interface {
		SummaryWriter
		SummaryReader
	}
)
